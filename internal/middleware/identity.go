package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/CragHollow/deckforge/internal/logging"
	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
)

const (
	// GuestSessionCookie carries the opaque anonymous session token. Minted
	// here on first contact; there is no durable account behind it.
	GuestSessionCookie = "deckforge_guest"

	// UserSessionCookie carries an upstream-issued session token for an
	// authenticated user.
	UserSessionCookie = "deckforge_session"

	// ShareTokenHeader carries a read-only share capability. Its presence,
	// once verified, marks the whole request read-only for the gate.
	ShareTokenHeader = "X-Share-Token"
)

type identityContextKey struct{}
type shareGrantContextKey struct{}

// Identity is the resolved caller of a request: the authorization context
// the gate consumes plus the session id handlers use to address the guest
// store.
type Identity struct {
	Authz     models.AuthorizationContext
	SessionID string
}

// SessionResolver resolves upstream-issued user session tokens.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*services.UserSession, error)
}

// ShareResolver verifies read-only share tokens.
type ShareResolver interface {
	ResolveToken(ctx context.Context, token string) (*services.DeckShare, error)
}

type IdentityMiddleware struct {
	sessions SessionResolver
	shares   ShareResolver
	secure   bool
}

func NewIdentityMiddleware(sessions SessionResolver, shares ShareResolver, secure bool) *IdentityMiddleware {
	return &IdentityMiddleware{sessions: sessions, shares: shares, secure: secure}
}

// Resolve attaches an Identity to every request. A valid user session wins
// over the guest cookie; absent both, a fresh guest session is minted. The
// read-only flag is set only from a server-verified share token; any
// client-echoed read-only hint is ignored.
func (m *IdentityMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := m.resolveIdentity(w, r)

		ctx := r.Context()
		if token := r.Header.Get(ShareTokenHeader); token != "" && m.shares != nil {
			grant, err := m.shares.ResolveToken(r.Context(), token)
			switch {
			case err == nil:
				identity.Authz.IsReadOnlyRequest = true
				ctx = context.WithValue(ctx, shareGrantContextKey{}, grant)
			case errors.Is(err, services.ErrShareNotFound):
				logging.Warn("Share token rejected", map[string]interface{}{
					"path": r.URL.Path,
				})
			default:
				// Verification failing is not the same as the token being
				// bad; surface the cause instead of folding it into a
				// rejection.
				logging.Error("Share token verification failed", map[string]interface{}{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
			}
		}
		ctx = WithIdentity(ctx, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *IdentityMiddleware) resolveIdentity(w http.ResponseWriter, r *http.Request) Identity {
	if cookie, err := r.Cookie(UserSessionCookie); err == nil && m.sessions != nil {
		if session, err := m.sessions.Resolve(r.Context(), cookie.Value); err == nil {
			return Identity{
				Authz: models.AuthorizationContext{
					Role:        session.Role,
					RequesterID: session.UserID,
				},
				SessionID: cookie.Value,
			}
		}
	}

	sessionID := ""
	if cookie, err := r.Cookie(GuestSessionCookie); err == nil && cookie.Value != "" {
		sessionID = cookie.Value
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     GuestSessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return Identity{
		Authz: models.AuthorizationContext{
			Role:        models.RoleGuest,
			RequesterID: sessionID,
		},
		SessionID: sessionID,
	}
}

// WithIdentity attaches an identity to a context. Handler tests use it to
// bypass cookie resolution.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the resolved identity, or a zero guest
// identity when the middleware did not run.
func IdentityFromContext(ctx context.Context) Identity {
	if identity, ok := ctx.Value(identityContextKey{}).(Identity); ok {
		return identity
	}
	return Identity{Authz: models.AuthorizationContext{Role: models.RoleGuest}}
}

// ShareGrantFromContext returns the verified share grant attached to the
// request, if any.
func ShareGrantFromContext(ctx context.Context) *services.DeckShare {
	grant, _ := ctx.Value(shareGrantContextKey{}).(*services.DeckShare)
	return grant
}
