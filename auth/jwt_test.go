package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t testing.TB, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func bearer(token string) *AuthRequest {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return &AuthRequest{Headers: h}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret))

	tests := []struct {
		name    string
		headers http.Header
		want    bool
	}{
		{"no header", http.Header{}, false},
		{"bearer", http.Header{"Authorization": {"Bearer abc"}}, true},
		{"basic", http.Header{"Authorization": {"Basic abc"}}, false},
		{"api key only", http.Header{"X-Api-Key": {"abc"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Supports(context.Background(), &AuthRequest{Headers: tt.headers}); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{
		Issuer:      "https://issuer.example",
		Audience:    "assetmigrate",
		TenantClaim: "tenant",
	}, NewStaticKeyProvider(testSecret))

	now := time.Now()
	valid := jwt.MapClaims{
		"sub":    "alice",
		"tenant": "acme",
		"roles":  []any{"migrator", "viewer"},
		"iss":    "https://issuer.example",
		"aud":    "assetmigrate",
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
	}
	with := func(k string, v any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, val := range valid {
			c[key] = val
		}
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}

	tests := []struct {
		name    string
		req     *AuthRequest
		wantErr error
	}{
		{"valid", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, valid)), nil},
		{"expired", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, with("exp", now.Add(-time.Minute).Unix()))), ErrTokenExpired},
		{"wrong issuer", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, with("iss", "other"))), ErrInvalidCredentials},
		{"wrong audience", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, with("aud", "other"))), ErrInvalidCredentials},
		{"wrong key", bearer(signToken(t, jwt.SigningMethodHS256, []byte("other"), valid)), ErrInvalidCredentials},
		{"no subject", bearer(signToken(t, jwt.SigningMethodHS256, testSecret, with("sub", nil))), ErrInvalidCredentials},
		{"garbage", bearer("not.a.jwt"), ErrTokenMalformed},
		{"empty token", bearer(""), ErrMissingCredentials},
		{"none algorithm", bearer(signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)), ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Authenticate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if tt.wantErr == nil {
				if !res.Authenticated {
					t.Fatalf("Authenticate() failed: %v", res.Error)
				}
				return
			}
			if res.Authenticated || !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("result = %+v, want failure %v", res, tt.wantErr)
			}
		})
	}
}

func TestJWTAuthenticator_Identity(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{TenantClaim: "tenant"}, NewStaticKeyProvider(testSecret))
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{
		"sub": "alice", "tenant": "acme", "roles": "migrator viewer", "exp": exp.Unix(),
	})

	res, err := a.Authenticate(context.Background(), bearer(token))
	if err != nil || !res.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", res, err)
	}
	id := res.Identity
	if id.Principal != "alice" || id.Owner() != "acme" || id.Method != AuthMethodJWT {
		t.Errorf("identity = %+v", id)
	}
	if !slices.Equal(id.Roles, []string{"migrator", "viewer"}) {
		t.Errorf("Roles = %v", id.Roles)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, exp)
	}
}

func TestStaticKeyProvider_EmptyKey(t *testing.T) {
	if _, err := NewStaticKeyProvider(nil).GetKey(context.Background(), ""); err == nil {
		t.Error("empty key should be refused")
	}
}
