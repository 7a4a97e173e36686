// Package repo declares the persistence contracts shared by the postgres,
// mongo and memory stores. Lookups of absent records return domain.ErrNotFound;
// a duplicate email on user creation returns domain.ErrConflict.
package repo

import (
	"context"

	"github.com/diagnosis/estate-listings/internal/domain"
)

// UserRepository is the credential store. Emails are stored lower-cased.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type PropertyRepository interface {
	Create(ctx context.Context, p *domain.Property) (*domain.Property, error)
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	List(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error)
	Update(ctx context.Context, id string, p *domain.Property) (*domain.Property, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}
