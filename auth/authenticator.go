package auth

import (
	"context"
	"net/http"
)

// Authenticator turns request credentials into an Identity.
//
// Rejected credentials are reported in the AuthResult with a nil error; a
// non-nil error means the authenticator itself failed, for example when
// its key store is unavailable. Implementations are safe for concurrent use.
type Authenticator interface {
	Name() string

	// Supports reports whether req carries credentials this authenticator
	// understands.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest is the part of an HTTP request authenticators look at.
type AuthRequest struct {
	Headers http.Header

	// Resource is the request path.
	Resource string
}

// NewAuthRequest extracts the credentials of r.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header, Resource: r.URL.Path}
}

// Header returns the first value of the named header, or "".
func (r *AuthRequest) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// AuthResult is the outcome of one authentication attempt. Identity is set
// when Authenticated is true and Error otherwise.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error

	// Method names the authenticator that produced the result.
	Method string
}

// Accept returns a successful result for id.
func Accept(id *Identity) *AuthResult {
	return &AuthResult{Authenticated: true, Identity: id, Method: string(id.Method)}
}

// Reject returns a failed result produced by the named authenticator.
func Reject(err error, method string) *AuthResult {
	return &AuthResult{Error: err, Method: method}
}
