package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/repo"
	"github.com/diagnosis/estate-listings/pkg/events"
	"github.com/diagnosis/estate-listings/pkg/logger"
)

// CatalogService serves the public catalog and the admin property operations.
// Callers of the admin methods are expected to sit behind the admin guard;
// actorID is only recorded on events.
type CatalogService interface {
	ListPublic(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error)
	GetPublic(ctx context.Context, id string) (*domain.Property, error)

	ListAll(ctx context.Context) ([]domain.Property, error)
	Get(ctx context.Context, id string) (*domain.Property, error)
	Create(ctx context.Context, actorID string, in *domain.PropertyInput) (*domain.Property, error)
	Update(ctx context.Context, actorID, id string, in *domain.PropertyInput) (*domain.Property, error)
	Delete(ctx context.Context, actorID, id string) error
	DeleteMany(ctx context.Context, actorID string, req *domain.BulkDeleteRequest) (int64, error)
}

type catalogService struct {
	properties repo.PropertyRepository
	eventBus   events.Publisher
	imageBase  string
	now        func() time.Time
}

// NewCatalogService builds the catalog. When publicURL is set, public reads
// serve bare image file names as <publicURL>/uploads/<name>; absolute http(s)
// links and admin reads are returned as stored.
func NewCatalogService(properties repo.PropertyRepository, eventBus events.Publisher, publicURL string) CatalogService {
	return &catalogService{
		properties: properties,
		eventBus:   eventBus,
		imageBase:  strings.TrimRight(publicURL, "/"),
		now:        time.Now,
	}
}

func (s *catalogService) ListPublic(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	f.ActiveOnly = true
	props, err := s.properties.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	for i := range props {
		props[i].Image = s.imageURL(props[i].Image)
	}
	return props, nil
}

// GetPublic hides inactive records as if they did not exist.
func (s *catalogService) GetPublic(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, domain.ErrNotFound
	}
	p.Image = s.imageURL(p.Image)
	return p, nil
}

func (s *catalogService) imageURL(image string) string {
	if s.imageBase == "" || image == "" {
		return image
	}
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return image
	}
	return s.imageBase + "/uploads/" + strings.TrimLeft(image, "/")
}

func (s *catalogService) ListAll(ctx context.Context) ([]domain.Property, error) {
	props, err := s.properties.List(ctx, domain.PropertyFilter{Sort: domain.SortNewest})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return props, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return p, nil
}

func (s *catalogService) Create(ctx context.Context, actorID string, in *domain.PropertyInput) (*domain.Property, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.properties.Create(ctx, in.ToProperty())
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	logger.InfoContext(ctx, "Property created", "property_id", p.ID)
	s.publish(ctx, events.PropertyCreated, s.changed(p, actorID))
	return p, nil
}

// Update replaces every editable field; omitted optional fields are reset.
func (s *catalogService) Update(ctx context.Context, actorID, id string, in *domain.PropertyInput) (*domain.Property, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.properties.Update(ctx, id, in.ToProperty())
	if err != nil {
		return nil, fmt.Errorf("failed to update property %s: %w", id, err)
	}

	logger.InfoContext(ctx, "Property updated", "property_id", p.ID)
	s.publish(ctx, events.PropertyUpdated, s.changed(p, actorID))
	return p, nil
}

func (s *catalogService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.properties.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete property %s: %w", id, err)
	}

	logger.InfoContext(ctx, "Property deleted", "property_id", id)
	s.publish(ctx, events.PropertyDeleted, events.PropertyDeletedEvent{
		PropertyIDs: []string{id},
		ActorID:     actorID,
		At:          s.now().UTC(),
	})
	return nil
}

// DeleteMany returns domain.ErrNotFound when none of the ids matched.
func (s *catalogService) DeleteMany(ctx context.Context, actorID string, req *domain.BulkDeleteRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	n, err := s.properties.DeleteMany(ctx, req.IDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete properties: %w", err)
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}

	logger.InfoContext(ctx, "Properties deleted", "requested", len(req.IDs), "deleted", n)
	s.publish(ctx, events.PropertyDeleted, events.PropertyDeletedEvent{
		PropertyIDs: req.IDs,
		ActorID:     actorID,
		At:          s.now().UTC(),
	})
	return n, nil
}

func (s *catalogService) changed(p *domain.Property, actorID string) events.PropertyChangedEvent {
	return events.PropertyChangedEvent{
		PropertyID: p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Status:     string(p.Status),
		ActorID:    actorID,
		At:         p.UpdatedAt,
	}
}

func (s *catalogService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.eventBus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
