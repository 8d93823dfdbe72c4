package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/attaboy/gamesocial/internal/domain"
)

type contextKey struct{}

// ClaimsFromContext returns the verified claims, or nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(contextKey{}).(*Claims)
	return claims
}

// SubjectFromContext returns the authenticated uid, or "" for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// AuthenticatePlayer requires a valid player token.
func AuthenticatePlayer(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, RealmPlayer, false)
}

// AuthenticateAdmin requires a valid admin token.
func AuthenticateAdmin(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, RealmAdmin, false)
}

// OptionalPlayer lets requests without an Authorization header through anonymously.
// A header that is present must still carry a valid player token.
func OptionalPlayer(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtMgr, RealmPlayer, true)
}

// RequireRole admits admin-realm callers holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, domain.ErrUnauthorized("no auth context"))
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				writeError(w, domain.ErrForbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(jwtMgr *JWTManager, realm Realm, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && optional {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := bearerClaims(header, jwtMgr, realm)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerClaims(header string, jwtMgr *JWTManager, realm Realm) (*Claims, error) {
	if header == "" {
		return nil, domain.ErrUnauthorized("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, domain.ErrUnauthorized("invalid Authorization format")
	}
	claims, err := jwtMgr.ValidateTokenForRealm(token, realm)
	if err != nil {
		return nil, domain.ErrUnauthorized(err.Error())
	}
	return claims, nil
}

// writeError mirrors handler.RespondError; auth sits below the handler package.
func writeError(w http.ResponseWriter, err error) {
	appErr, _ := domain.AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(appErr)
}
