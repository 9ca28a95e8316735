package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// PrincipalKey is the context key for the authenticated caller
	PrincipalKey ContextKey = "principal"
)

// Identities resolves callers; implemented by the user repository
type Identities interface {
	PrincipalByToken(ctx context.Context, key string) (*access.Principal, error)
	PrincipalByID(ctx context.Context, id int64) (*access.Principal, error)
}

// Authenticator attaches the caller's Principal to the request context.
// Tokens are issued elsewhere; this only resolves them.
type Authenticator struct {
	identities Identities
	devAuth    bool
	logger     *zap.Logger
}

// NewAuthenticator creates a new authenticator. devAuth enables the
// X-Test-User-ID header (DEV ONLY).
func NewAuthenticator(identities Identities, devAuth bool, logger *zap.Logger) *Authenticator {
	return &Authenticator{identities: identities, devAuth: devAuth, logger: logger}
}

// Middleware resolves "Authorization: Token <key>" or "Bearer <key>". Requests
// without valid credentials pass through anonymous; Require rejects them.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.resolve(r)
		if err != nil {
			a.logger.Error("failed to resolve principal", zap.Error(err))
			response.InternalError(w, "Failed to authenticate")
			return
		}
		if p != nil {
			r = r.WithContext(WithPrincipal(r.Context(), *p))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (*access.Principal, error) {
	if a.devAuth {
		if idStr := r.Header.Get("X-Test-User-ID"); idStr != "" {
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil && id > 0 {
				return a.identities.PrincipalByID(r.Context(), id)
			}
		}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || (parts[0] != "Token" && parts[0] != "Bearer") {
		return nil, nil
	}
	return a.identities.PrincipalByToken(r.Context(), parts[1])
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal extracts the caller from the request context
func GetPrincipal(ctx context.Context) (access.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(access.Principal)
	return p, ok
}

// Capability is a named requirement on the caller
type Capability struct {
	Name  string
	Allow func(p access.Principal) bool
}

var (
	// Authenticated admits any identified caller
	Authenticated = Capability{Name: "authenticated", Allow: func(access.Principal) bool { return true }}
	// Staff admits staff users only
	Staff = Capability{Name: "staff", Allow: func(p access.Principal) bool { return p.IsStaff }}
)

// Require is the single authorization middleware mounted in front of every
// route group. Resource-level checks (group membership) happen in services.
func Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				response.Unauthorized(w, "Authentication credentials were not provided")
				return
			}
			if !c.Allow(p) {
				response.Forbidden(w, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
