package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"discount-pin-service/internal/infra/logging"
)

type Role string

const (
	RoleProvider   Role = "provider"
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

// Claims carry the caller's role; Subject is the caller's user or provider id.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// Authenticator verifies HS256 bearer tokens issued by the account service.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) (*Authenticator, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &Authenticator{secret: []byte(secret)}, nil
}

// Mint signs a token for subject. Used by tooling and tests.
func (a *Authenticator) Mint(subject string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// Authenticate rejects requests without a valid bearer token.
func (a *Authenticator) Authenticate() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := r.Header.Get("Authorization")
			if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token", Code: "unauthorized"})
				return
			}
			claims, err := a.parse(strings.TrimSpace(hdr[7:]))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error(), Code: "unauthorized"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			if claims.Role == RoleProvider {
				ctx = logging.WithProviderID(ctx, claims.Subject)
			} else {
				ctx = logging.WithUserID(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through callers holding one of roles.
func RequireRole(roles ...Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := claimsFrom(r.Context())
			if c == nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated", Code: "unauthorized"})
				return
			}
			for _, role := range roles {
				if c.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, errorBody{Error: "role not allowed", Code: "forbidden"})
		})
	}
}
