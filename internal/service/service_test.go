package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/repo/memory"
	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/diagnosis/estate-listings/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheapArgon = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type published struct {
	subject string
	data    interface{}
}

type recordingBus struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{subject, data})
	return b.err
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.subject
	}
	return out
}

type authFixture struct {
	svc    AuthService
	tokens *auth.TokenManager
	bus    *recordingBus
	store  *memory.Store
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)
	store := memory.New()
	bus := &recordingBus{}
	return &authFixture{
		svc:    NewAuthService(store.Users(), auth.NewArgon2idHasher(cheapArgon), tokens, bus),
		tokens: tokens,
		bus:    bus,
		store:  store,
	}
}

func TestSignupThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, &domain.SignupRequest{Name: "A", Email: "A@B.com", Password: "longenough1"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "longenough1", u.PasswordHash)
	assert.Equal(t, []string{events.UserRegistered}, f.bus.subjects())

	resp, err := f.svc.Login(ctx, &domain.LoginRequest{Email: " a@b.com ", Password: "longenough1"})
	require.NoError(t, err)
	assert.False(t, resp.IsAdmin)
	assert.Equal(t, int64(86400), resp.ExpiresIn)

	id, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.False(t, id.IsAdmin)
}

func TestSignup_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, &domain.SignupRequest{Email: "a@b.com", Password: "short"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Signup(ctx, &domain.SignupRequest{Email: "nope", Password: "longenough1"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Signup(ctx, &domain.SignupRequest{Email: "a@b.com", Password: "longenough1"})
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, &domain.SignupRequest{Email: "A@B.COM", Password: "longenough2"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin_GenericFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &domain.SignupRequest{Email: "a@b.com", Password: "longenough1"})
	require.NoError(t, err)

	_, unknownErr := f.svc.Login(ctx, &domain.LoginRequest{Email: "x@b.com", Password: "longenough1"})
	_, wrongErr := f.svc.Login(ctx, &domain.LoginRequest{Email: "a@b.com", Password: "wrong-password"})
	_, emptyErr := f.svc.Login(ctx, &domain.LoginRequest{Email: "a@b.com"})

	for _, err := range []error{unknownErr, wrongErr, emptyErr} {
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestBootstrapAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, created, err := f.svc.BootstrapAdmin(ctx, &domain.SignupRequest{Email: "root@example.com", Password: "longenough1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.IsAdmin)

	again, created, err := f.svc.BootstrapAdmin(ctx, &domain.SignupRequest{Email: "root@example.com", Password: "different-pass"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	resp, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "root@example.com", Password: "longenough1"})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)
}

func TestProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.Signup(ctx, &domain.SignupRequest{Name: "A", Email: "a@b.com", Password: "longenough1"})
	require.NoError(t, err)

	got, err := f.svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = f.svc.Profile(ctx, "missing-user")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSignup_EventFailureDoesNotFail(t *testing.T) {
	f := newAuthFixture(t)
	f.bus.err = errors.New("broker down")

	_, err := f.svc.Signup(context.Background(), &domain.SignupRequest{Email: "a@b.com", Password: "longenough1"})
	assert.NoError(t, err)
}

func input(name string, price float64, location string) *domain.PropertyInput {
	return &domain.PropertyInput{
		Name:     name,
		Image:    "https://img.example/" + name + ".jpg",
		Price:    domain.Amount{Value: price, Set: true, Valid: true},
		Location: location,
	}
}

func TestCatalog_PublicListing(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := memory.New().WithClock(func() time.Time { return now })
	svc := NewCatalogService(store.Properties(), events.NopPublisher{}, "")

	mk := func(in *domain.PropertyInput) *domain.Property {
		now = now.Add(time.Minute)
		p, err := svc.Create(ctx, "admin", in)
		require.NoError(t, err)
		return p
	}
	cheap := mk(input("cheap", 95000, "Austin"))
	low := mk(input("low", 100000, "Austin"))
	hidden := input("hidden", 150000, "Austin")
	hidden.Status = "inactive"
	inactive := mk(hidden)
	high := mk(input("high", 200000, "Dallas"))
	over := mk(input("over", 200001, "Austin"))

	f, err := domain.NewPublicFilter("100000", "200000", "", "")
	require.NoError(t, err)
	list, err := svc.ListPublic(ctx, f)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, high.ID, list[0].ID)
	assert.Equal(t, low.ID, list[1].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, over.ID, all[0].ID)
	assert.Equal(t, cheap.ID, all[4].ID)

	_, err = svc.GetPublic(ctx, inactive.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := svc.Get(ctx, inactive.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyInactive, got.Status)

	f, err = domain.NewPublicFilter("", "", "", "price_asc")
	require.NoError(t, err)
	list, err = svc.ListPublic(ctx, f)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, cheap.ID, list[0].ID)
	assert.Equal(t, over.ID, list[3].ID)
}

func TestCatalog_PublicImageURLs(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.New().Properties(), events.NopPublisher{}, "https://api.example.com/")

	bare := input("bare", 1, "Austin")
	bare.Image = "house.jpg"
	stored, err := svc.Create(ctx, "admin", bare)
	require.NoError(t, err)
	assert.Equal(t, "house.jpg", stored.Image)

	linked, err := svc.Create(ctx, "admin", input("linked", 2, "Austin"))
	require.NoError(t, err)

	got, err := svc.GetPublic(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/uploads/house.jpg", got.Image)

	got, err = svc.GetPublic(ctx, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/linked.jpg", got.Image)

	list, err := svc.ListPublic(ctx, domain.PropertyFilter{Sort: domain.SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://api.example.com/uploads/house.jpg", list[0].Image)
	assert.Equal(t, "https://img.example/linked.jpg", list[1].Image)

	// admin reads and the store keep the raw value
	admin, err := svc.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "house.jpg", admin.Image)

	plain := NewCatalogService(memory.New().Properties(), events.NopPublisher{}, "")
	p, err := plain.Create(ctx, "admin", bare)
	require.NoError(t, err)
	got, err = plain.GetPublic(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "house.jpg", got.Image)
}

func TestCatalog_Mutations(t *testing.T) {
	ctx := context.Background()
	bus := &recordingBus{}
	svc := NewCatalogService(memory.New().Properties(), bus, "")

	_, err := svc.Create(ctx, "admin", &domain.PropertyInput{Name: "x"})
	assert.True(t, domain.IsValidation(err))

	p, err := svc.Create(ctx, "admin", input("loft", 1, "Austin"))
	require.NoError(t, err)
	assert.Equal(t, domain.PropertyActive, p.Status)

	upd := input("bigger loft", 2, "Austin")
	upd.Featured = true
	updated, err := svc.Update(ctx, "admin", p.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, "bigger loft", updated.Name)
	assert.True(t, updated.Featured)

	_, err = svc.Update(ctx, "admin", "missing", input("a", 1, "b"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "admin", p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "admin", p.ID), domain.ErrNotFound)

	assert.Equal(t, []string{events.PropertyCreated, events.PropertyUpdated, events.PropertyDeleted}, bus.subjects())
}

func TestCatalog_DeleteMany(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.New().Properties(), events.NopPublisher{}, "")

	a, err := svc.Create(ctx, "admin", input("a", 1, "x"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, "admin", input("b", 1, "x"))
	require.NoError(t, err)

	_, err = svc.DeleteMany(ctx, "admin", &domain.BulkDeleteRequest{})
	assert.True(t, domain.IsValidation(err))

	n, err := svc.DeleteMany(ctx, "admin", &domain.BulkDeleteRequest{IDs: []string{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = svc.DeleteMany(ctx, "admin", &domain.BulkDeleteRequest{IDs: []string{a.ID}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
