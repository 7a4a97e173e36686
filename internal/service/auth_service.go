package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/repo"
	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/diagnosis/estate-listings/pkg/events"
	"github.com/diagnosis/estate-listings/pkg/logger"
)

type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	// Profile loads the account behind a verified token. A token whose
	// account no longer exists is reported as domain.ErrUnauthenticated.
	Profile(ctx context.Context, userID string) (*domain.User, error)
	// BootstrapAdmin creates an administrator account. created is false when
	// the email is already registered; the existing account is left untouched.
	BootstrapAdmin(ctx context.Context, req *domain.SignupRequest) (user *domain.User, created bool, err error)
}

type TokenIssuer interface {
	Issue(userID string, isAdmin bool) (string, error)
}

type authService struct {
	users    repo.UserRepository
	hasher   auth.PasswordHasher
	tokens   TokenIssuer
	eventBus events.Publisher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users repo.UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	eventBus events.Publisher,
) AuthService {
	return &authService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		eventBus: eventBus,
	}
}

func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, error) {
	user, err := s.register(ctx, req, false)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID)
	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		RegisteredAt: user.CreatedAt,
	})
	return user, nil
}

func (s *authService) BootstrapAdmin(ctx context.Context, req *domain.SignupRequest) (*domain.User, bool, error) {
	user, err := s.register(ctx, req, true)
	if errors.Is(err, domain.ErrConflict) {
		existing, findErr := s.users.FindByEmail(ctx, req.Email)
		if findErr != nil {
			return nil, false, fmt.Errorf("failed to load existing user: %w", findErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	logger.InfoContext(ctx, "Admin account created", "user_id", user.ID)
	s.publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		IsAdmin:      true,
		RegisteredAt: user.CreatedAt,
	})
	return user, true, nil
}

func (s *authService) register(ctx context.Context, req *domain.SignupRequest, isAdmin bool) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Check if user already exists
	_, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, domain.ErrConflict
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// the store's unique index still decides concurrent signups
	user, err := s.users.Create(ctx, &domain.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login reports every credential failure as domain.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if req.Email == "" || req.Password == "" || len(req.Password) > domain.MaxPasswordBytes {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// spend the same hashing work as a real check
		s.burnVerify(req.Password)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	valid, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		logger.DebugContext(ctx, "Login rejected", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.LoginResponse{
		Token:     token,
		IsAdmin:   user.IsAdmin,
		ExpiresIn: int64(auth.TokenTTL / time.Second),
		Message:   "Login successful",
	}, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *authService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *authService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.eventBus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
