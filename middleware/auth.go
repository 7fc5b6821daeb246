package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/services"
)

type contextKey string

const playerContextKey contextKey = "player"

// TokenAuthenticator resolves a bearer token to its player.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Player, error)
}

// Auth guards routes with the bearer token issued at login.
type Auth struct {
	tokens TokenAuthenticator
}

func NewAuth(tokens TokenAuthenticator) *Auth {
	return &Auth{tokens: tokens}
}

// Authenticate rejects requests without a valid token.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		player, err := a.tokens.Authenticate(r.Context(), token)
		if err != nil {
			a.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), player)))
	})
}

// Optional attaches the player when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := BearerToken(r); token != "" {
			if player, err := a.tokens.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(WithPlayer(r.Context(), player))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		player, ok := PlayerFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !player.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrPlayerNotFound):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, services.ErrInvalidToken.Error())
	default:
		writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithPlayer(ctx context.Context, player *models.Player) context.Context {
	return context.WithValue(ctx, playerContextKey, player)
}

func PlayerFromContext(ctx context.Context) (*models.Player, bool) {
	player, ok := ctx.Value(playerContextKey).(*models.Player)
	return player, ok && player != nil
}
