// Package auth authenticates API callers and authorizes their actions.
//
// Two authenticators are provided: JWTAuthenticator validates HMAC signed
// bearer tokens and APIKeyAuthenticator looks up hashed keys. A Chain tries
// several in order. RoleAuthorizer grants actions to roles, with role
// inheritance. Middleware and Require adapt both to net/http; the resolved
// Identity travels in the request context and its Owner scopes the
// attachments a caller may migrate.
package auth
