package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Middleware authenticates each request with the first of authenticators
// that succeeds and attaches the identity to the request context. Requests
// without valid credentials are answered with 401.
//
// Usage:
//
//	mux.Handle("/v1/", auth.Middleware(jwtAuth, keyAuth)(api))
func Middleware(authenticators ...Authenticator) func(http.Handler) http.Handler {
	chain := NewChain(authenticators...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := NewAuthRequest(r)
			res, err := chain.Authenticate(r.Context(), req)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal", err)
				return
			}
			if !res.Authenticated {
				cause := res.Error
				if cause == nil {
					cause = ErrInvalidCredentials
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="assetmigrate"`)
				writeError(w, http.StatusUnauthorized, "unauthenticated", cause)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

// Anonymous attaches an anonymous identity for principal to every request.
// It stands in for Middleware when authentication is disabled.
func Anonymous(principal string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), AnonymousIdentity(principal))))
		})
	}
}

// Require rejects requests whose identity authz does not permit to perform
// action, with 401 when there is no identity and 403 otherwise.
func Require(authz Authorizer, action string) func(http.Handler) http.Handler {
	if authz == nil {
		authz = AllowAllAuthorizer{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", ErrMissingCredentials)
				return
			}
			err := authz.Authorize(r.Context(), &AuthzRequest{Subject: id, Action: action, Resource: id.Owner()})
			if err != nil {
				status, kind := http.StatusForbidden, "forbidden"
				if !errors.Is(err, ErrForbidden) {
					status, kind = http.StatusInternalServerError, "internal"
				}
				writeError(w, status, kind, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "kind": kind})
}
