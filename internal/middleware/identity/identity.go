// Package identity resolves the authenticated user of a request. Montra does
// not authenticate users itself: it trusts a bearer token signed by the auth
// service or a header set by the fronting proxy.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

const DefaultHeader = "X-User-ID"

var (
	ErrMissingIdentity = errors.New("missing identity")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidUserID   = errors.New("invalid user id")
)

type Config struct {
	// JWTSecret enables HS256 bearer tokens. When empty the trusted
	// header is used instead.
	JWTSecret []byte
	Header    string
	Issuer    string
}

type Resolver struct {
	secret []byte
	header string
	issuer string
}

func NewResolver(cfg Config) *Resolver {
	header := strings.TrimSpace(cfg.Header)
	if header == "" {
		header = DefaultHeader
	}
	return &Resolver{secret: cfg.JWTSecret, header: header, issuer: cfg.Issuer}
}

// UsesJWT reports whether bearer tokens are required.
func (res *Resolver) UsesJWT() bool { return len(res.secret) > 0 }

// Resolve returns the user id carried by r.
func (res *Resolver) Resolve(r *http.Request) (int64, error) {
	if res.UsesJWT() {
		return res.fromToken(r)
	}
	v := strings.TrimSpace(r.Header.Get(res.header))
	if v == "" {
		return 0, ErrMissingIdentity
	}
	return parseUserID(v)
}

func (res *Resolver) fromToken(r *http.Request) (int64, error) {
	auth := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, ErrMissingIdentity
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if res.issuer != "" {
		opts = append(opts, jwt.WithIssuer(res.issuer))
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return res.secret, nil
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return parseUserID(claims.Subject)
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return id, nil
}

// Middleware stores the resolved user id in the request context and calls
// onFailure when there is none.
func (res *Resolver) Middleware(onFailure func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := res.Resolve(r)
			if err != nil {
				if res.UsesJWT() {
					w.Header().Set("WWW-Authenticate", `Bearer realm="montra"`)
				}
				if onFailure != nil {
					onFailure(w, r, err)
				} else {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the user stored by Middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok
}

// IssueToken signs a token for userID. Used by the admin CLI and tests.
func IssueToken(secret []byte, userID int64, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatInt(userID, 10)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
