package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("test-secret")

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
}

func TestResolveHeader(t *testing.T) {
	res := NewResolver(Config{})
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr error
	}{
		{"valid", "42", 42, nil},
		{"missing", "", 0, ErrMissingIdentity},
		{"not a number", "abc", 0, ErrInvalidUserID},
		{"zero", "0", 0, ErrInvalidUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.value != "" {
				req.Header.Set(DefaultHeader, tt.value)
			}
			got, err := res.Resolve(req)
			if !errors.Is(err, tt.wantErr) || got != tt.want {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestResolveCustomHeader(t *testing.T) {
	res := NewResolver(Config{Header: "X-Auth-User"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-User", "7")
	if got, err := res.Resolve(req); err != nil || got != 7 {
		t.Fatalf("got (%d, %v)", got, err)
	}
}

func TestResolveJWT(t *testing.T) {
	res := NewResolver(Config{JWTSecret: secret, Issuer: "auth"})

	good := validClaims()
	good.Issuer = "auth"
	token, err := IssueToken(secret, 9, good)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrongIssuer, _ := IssueToken(secret, 9, validClaims())
	otherKey, _ := IssueToken([]byte("other"), 9, good)
	expiredClaims := good
	expiredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, _ := IssueToken(secret, 9, expiredClaims)
	noExpiry := good
	noExpiry.ExpiresAt = nil
	unbounded, _ := IssueToken(secret, 9, noExpiry)
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice", Issuer: "auth", ExpiresAt: good.ExpiresAt,
	}).SignedString(secret)

	tests := []struct {
		name    string
		header  string
		want    int64
		wantErr error
	}{
		{"valid", "Bearer " + token, 9, nil},
		{"missing", "", 0, ErrMissingIdentity},
		{"not bearer", "Basic abc", 0, ErrMissingIdentity},
		{"wrong issuer", "Bearer " + wrongIssuer, 0, ErrInvalidToken},
		{"wrong key", "Bearer " + otherKey, 0, ErrInvalidToken},
		{"expired", "Bearer " + expired, 0, ErrInvalidToken},
		{"no expiry", "Bearer " + unbounded, 0, ErrInvalidToken},
		{"non numeric subject", "Bearer " + badSubject, 0, ErrInvalidUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			req.Header.Set(DefaultHeader, "1")
			got, err := res.Resolve(req)
			if !errors.Is(err, tt.wantErr) || got != tt.want {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	res := NewResolver(Config{JWTSecret: secret})
	var seen int64
	h := res.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate")
	}

	token, _ := IssueToken(secret, 5, validClaims())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != 5 {
		t.Fatalf("status = %d, user = %d", rec.Code, seen)
	}
}
