package auth

import "context"

// Chain tries authenticators in order and returns the first success.
//
// Authenticators that do not support a request are skipped. When none
// succeeds the last failure is returned, or ErrMissingCredentials when no
// authenticator applied at all.
type Chain []Authenticator

// NewChain returns a chain of the non-nil authenticators.
func NewChain(auths ...Authenticator) Chain {
	c := make(Chain, 0, len(auths))
	for _, a := range auths {
		if a != nil {
			c = append(c, a)
		}
	}
	return c
}

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Supports returns true if any authenticator supports the request.
func (c Chain) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate tries each supporting authenticator in turn.
func (c Chain) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if res.Authenticated {
			return res, nil
		}
		last = res
	}
	if last != nil {
		return last, nil
	}
	return Reject(ErrMissingCredentials, c.Name()), nil
}

var _ Authenticator = Chain(nil)
