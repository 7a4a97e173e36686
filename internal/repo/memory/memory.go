// Package memory keeps users and properties in process memory. It backs
// STORE_DRIVER=memory and the handler and service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	seq        int64
	users      map[string]domain.User
	emails     map[string]string
	properties map[string]entry
}

type entry struct {
	seq      int64
	property domain.Property
}

func New() *Store {
	return &Store{
		now:        time.Now,
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
		properties: make(map[string]entry),
	}
}

// WithClock sets the time source used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
func (s *Store) Properties() *PropertyRepository { return &PropertyRepository{s: s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.emails[u.Email]; exists {
		return nil, domain.ErrConflict
	}

	now := r.s.now().UTC()
	created := *u
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.s.users[created.ID] = created
	r.s.emails[created.Email] = created.ID
	return &created, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type PropertyRepository struct{ s *Store }

func (r *PropertyRepository) Create(_ context.Context, p *domain.Property) (*domain.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now().UTC()
	created := *p
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.s.seq++
	r.s.properties[created.ID] = entry{seq: r.s.seq, property: created}
	return &created, nil
}

func (r *PropertyRepository) GetByID(_ context.Context, id string) (*domain.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.properties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p := e.property
	return &p, nil
}

func (r *PropertyRepository) List(_ context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	r.s.mu.RLock()
	entries := make([]entry, 0, len(r.s.properties))
	for _, e := range r.s.properties {
		if f.Matches(&e.property) {
			entries = append(entries, e)
		}
	}
	r.s.mu.RUnlock()

	// insertion order descending breaks timestamp ties for "newest"
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	out := make([]domain.Property, len(entries))
	for i, e := range entries {
		out[i] = e.property
	}
	domain.SortProperties(out, f.Sort)
	return out, nil
}

func (r *PropertyRepository) Update(_ context.Context, id string, p *domain.Property) (*domain.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.properties[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	updated := *p
	updated.ID = id
	updated.CreatedAt = e.property.CreatedAt
	updated.UpdatedAt = r.s.now().UTC()

	r.s.properties[id] = entry{seq: e.seq, property: updated}
	return &updated, nil
}

func (r *PropertyRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.properties[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.properties, id)
	return nil
}

func (r *PropertyRepository) DeleteMany(_ context.Context, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.s.properties[id]; ok {
			delete(r.s.properties, id)
			n++
		}
	}
	return n, nil
}
