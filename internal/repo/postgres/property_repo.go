package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PropertiesRepo struct{ pool *pgxpool.Pool }

func NewPropertiesRepo(pool *pgxpool.Pool) *PropertiesRepo { return &PropertiesRepo{pool: pool} }

const propertyCols = `id, name, image, price, location, COALESCE(status, ''), featured, description, created_at, updated_at`

func (r *PropertiesRepo) Create(ctx context.Context, in *domain.Property) (*domain.Property, error) {
	const q = `
INSERT INTO properties (id, name, image, price, location, status, featured, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + propertyCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProperty(r.pool.QueryRow(ctx, q,
		uuid.NewString(), in.Name, in.Image, in.Price, in.Location, string(in.Status), in.Featured, in.Description,
	))
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	return p, nil
}

func (r *PropertiesRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	const q = `SELECT ` + propertyCols + ` FROM properties WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProperty(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func (r *PropertiesRepo) List(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	q, args := buildListQuery(f)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return out, nil
}

func (r *PropertiesRepo) Update(ctx context.Context, id string, in *domain.Property) (*domain.Property, error) {
	const q = `
UPDATE properties
SET name=$2, image=$3, price=$4, location=$5, status=$6, featured=$7, description=$8, updated_at=now()
WHERE id=$1
RETURNING ` + propertyCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProperty(r.pool.QueryRow(ctx, q,
		id, in.Name, in.Image, in.Price, in.Location, string(in.Status), in.Featured, in.Description,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}
	return p, nil
}

func (r *PropertiesRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM properties WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PropertiesRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	const q = `DELETE FROM properties WHERE id = ANY($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete properties: %w", err)
	}
	return tag.RowsAffected(), nil
}

// buildListQuery renders the filter as positional SQL.
func buildListQuery(f domain.PropertyFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString(`SELECT ` + propertyCols + ` FROM properties WHERE TRUE`)
	if f.ActiveOnly {
		sb.WriteString(` AND (status IS NULL OR status IN ('', 'active'))`)
	}
	if f.MinPrice != nil {
		sb.WriteString(` AND price >= ` + arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		sb.WriteString(` AND price <= ` + arg(*f.MaxPrice))
	}
	if f.Location != "" {
		sb.WriteString(` AND location ILIKE ` + arg("%"+escapeLike(f.Location)+"%"))
	}

	switch f.Sort {
	case domain.SortPriceAsc:
		sb.WriteString(` ORDER BY price ASC, created_at DESC`)
	case domain.SortPriceDesc:
		sb.WriteString(` ORDER BY price DESC, created_at DESC`)
	default:
		sb.WriteString(` ORDER BY created_at DESC, id DESC`)
	}
	return sb.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var (
		p      domain.Property
		status string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Image, &p.Price, &p.Location, &status, &p.Featured, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = domain.PropertyStatus(status)
	return &p, nil
}
