package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/estate-listings/internal/utils"
)

type PropertyStatus string

const (
	PropertyActive   PropertyStatus = "active"
	PropertyInactive PropertyStatus = "inactive"
)

func ParsePropertyStatus(s string) (PropertyStatus, bool) {
	switch PropertyStatus(s) {
	case PropertyActive, PropertyInactive:
		return PropertyStatus(s), true
	default:
		return "", false
	}
}

type Property struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Image       string         `json:"image"`
	Price       float64        `json:"price"`
	Location    string         `json:"location"`
	Status      PropertyStatus `json:"status"`
	Featured    bool           `json:"featured"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IsActive treats records written without a status as active.
func (p *Property) IsActive() bool {
	return p.Status == "" || p.Status == PropertyActive
}

// Amount accepts a JSON number or a numeric string. It never fails to decode;
// Validate reports bad values so they surface as field errors.
type Amount struct {
	Value float64
	Set   bool
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	a.Set = true

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			a.Valid = false
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	a.Value = v
	a.Valid = err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
	return nil
}

// PropertyInput is the body of admin create and update calls.
type PropertyInput struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Price       Amount `json:"price"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Featured    bool   `json:"featured"`
	Description string `json:"description"`
}

func (in *PropertyInput) Normalize() {
	in.Name = utils.NormalizeString(in.Name)
	in.Image = utils.NormalizeString(in.Image)
	in.Location = utils.NormalizeString(in.Location)
	in.Status = strings.ToLower(utils.NormalizeString(in.Status))
	in.Description = utils.NormalizeString(in.Description)
}

func (in *PropertyInput) Validate() error {
	if in.Name == "" {
		return NewValidationError("name", "name is required")
	}
	if in.Image == "" {
		return NewValidationError("image", "image is required")
	}
	if !in.Price.Set {
		return NewValidationError("price", "price is required")
	}
	if !in.Price.Valid {
		return NewValidationError("price", "price must be a number")
	}
	if in.Price.Value < 0 {
		return NewValidationError("price", "price must not be negative")
	}
	if in.Location == "" {
		return NewValidationError("location", "location is required")
	}
	if in.Status != "" {
		if _, ok := ParsePropertyStatus(in.Status); !ok {
			return NewValidationError("status", "status must be 'active' or 'inactive'")
		}
	}
	return nil
}

// ToProperty maps validated input onto a record; an empty status becomes active.
func (in *PropertyInput) ToProperty() *Property {
	status := PropertyStatus(in.Status)
	if status == "" {
		status = PropertyActive
	}
	return &Property{
		Name:        in.Name,
		Image:       in.Image,
		Price:       in.Price.Value,
		Location:    in.Location,
		Status:      status,
		Featured:    in.Featured,
		Description: in.Description,
	}
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (r *BulkDeleteRequest) Validate() error {
	if len(r.IDs) == 0 {
		return NewValidationError("ids", "at least one id is required")
	}
	for _, id := range r.IDs {
		if strings.TrimSpace(id) == "" {
			return NewValidationError("ids", "ids must not be empty")
		}
	}
	return nil
}

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// ParseSortOrder falls back to newest for empty or unknown keys.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceAsc, SortPriceDesc:
		return SortOrder(s)
	default:
		return SortNewest
	}
}

type PropertyFilter struct {
	ActiveOnly bool
	MinPrice   *float64
	MaxPrice   *float64
	Location   string
	Sort       SortOrder
}

// NewPublicFilter parses catalog query parameters. Public listings are always
// restricted to active records.
func NewPublicFilter(minPrice, maxPrice, location, sortBy string) (PropertyFilter, error) {
	f := PropertyFilter{
		ActiveOnly: true,
		Location:   utils.NormalizeString(location),
		Sort:       ParseSortOrder(sortBy),
	}

	var err error
	if f.MinPrice, err = parseBound("minPrice", minPrice); err != nil {
		return PropertyFilter{}, err
	}
	if f.MaxPrice, err = parseBound("maxPrice", maxPrice); err != nil {
		return PropertyFilter{}, err
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return PropertyFilter{}, NewValidationError("minPrice", "minPrice must not exceed maxPrice")
	}
	return f, nil
}

func parseBound(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, NewValidationError(field, field+" must be a number")
	}
	if v < 0 {
		return nil, NewValidationError(field, field+" must not be negative")
	}
	return &v, nil
}

// Matches applies the filter to a single record.
func (f PropertyFilter) Matches(p *Property) bool {
	if f.ActiveOnly && !p.IsActive() {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Location != "" && !utils.ContainsFold(p.Location, f.Location) {
		return false
	}
	return true
}

// SortProperties orders numerically by price or by recency, newest first.
func SortProperties(props []Property, order SortOrder) {
	sort.SliceStable(props, func(i, j int) bool {
		switch order {
		case SortPriceAsc:
			return props[i].Price < props[j].Price
		case SortPriceDesc:
			return props[i].Price > props[j].Price
		default:
			return props[i].CreatedAt.After(props[j].CreatedAt)
		}
	})
}
