package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/http/response"
	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/diagnosis/estate-listings/pkg/logger"
)

type ctxKey string

const CtxIdentity ctxKey = "identity"

type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Guard puts a verified bearer identity in front of protected routes. The
// role embedded in the token is trusted until the token expires.
type Guard struct {
	tokens TokenVerifier
}

func NewGuard(tokens TokenVerifier) *Guard {
	return &Guard{tokens: tokens}
}

// RequireAuth rejects requests without a valid bearer token with 401.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := g.authenticate(r)
		if !ok {
			response.FromError(w, r, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequireAdmin additionally rejects non-admin identities with 403.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := g.authenticate(r)
		if !ok {
			response.FromError(w, r, domain.ErrUnauthenticated)
			return
		}
		if !id.IsAdmin {
			logger.WarnContext(r.Context(), "admin route denied", "user_id", id.UserID, "path", r.URL.Path)
			response.FromError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func (g *Guard) authenticate(r *http.Request) (auth.Identity, bool) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return auth.Identity{}, false
	}
	id, err := g.tokens.Verify(raw)
	if err != nil {
		logger.DebugContext(r.Context(), "bearer token rejected", "error", err)
		return auth.Identity{}, false
	}
	return id, true
}

// bearerToken accepts exactly "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	ctx = context.WithValue(ctx, CtxIdentity, id)
	return context.WithValue(ctx, logger.UserIDKey, id.UserID)
}

// Identity returns the identity stored by the guard, if any.
func Identity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(CtxIdentity).(auth.Identity)
	return id, ok
}
