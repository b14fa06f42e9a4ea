package auth

import (
	"context"
	"fmt"
)

// Actions checked by the API.
const (
	ActionSubmitBatch = "batch:submit"
	ActionPlan        = "plan:resolve"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or an error (typically *AuthzError).
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Action is the requested action (e.g., "batch:submit").
	Action string

	// Resource is the target resource, e.g. the owner id.
	Resource string
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject  string
	Resource string
	Action   string
	Reason   string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q resource=%q action=%q reason=%q",
		e.Subject, e.Resource, e.Action, e.Reason)
}

// Is matches ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AllowAllAuthorizer permits all requests.
type AllowAllAuthorizer struct{}

// Authorize always returns nil.
func (AllowAllAuthorizer) Authorize(context.Context, *AuthzRequest) error { return nil }

// Name returns "allow_all".
func (AllowAllAuthorizer) Name() string { return "allow_all" }

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}
