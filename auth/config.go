package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config describes the authenticators and authorizer of the API.
type Config struct {
	// Enabled turns authentication on. When off every request runs as
	// AnonymousIdentity(AnonymousOwner).
	Enabled bool `toml:"enabled"`

	// AnonymousOwner is the owner used while authentication is disabled.
	AnonymousOwner string `toml:"anonymous_owner"`

	JWT     JWTSettings     `toml:"jwt"`
	APIKeys []APIKeySetting `toml:"api_keys"`
	Roles   RoleConfig      `toml:"roles"`
}

// JWTSettings configures the JWT authenticator. An empty Secret disables it.
type JWTSettings struct {
	Secret      string        `toml:"secret"`
	Issuer      string        `toml:"issuer"`
	Audience    string        `toml:"audience"`
	TenantClaim string        `toml:"tenant_claim"`
	RolesClaim  string        `toml:"roles_claim"`
	Leeway      time.Duration `toml:"leeway"`
}

// APIKeySetting registers one API key. Exactly one of Key and Hash is set;
// Key is hashed on load.
type APIKeySetting struct {
	ID        string    `toml:"id"`
	Key       string    `toml:"key"`
	Hash      string    `toml:"hash"`
	Principal string    `toml:"principal"`
	TenantID  string    `toml:"tenant"`
	Roles     []string  `toml:"roles"`
	ExpiresAt time.Time `toml:"expires_at"`
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.JWT.Secret == "" && len(c.APIKeys) == 0 {
		errs = append(errs, errors.New("auth: enabled without a jwt secret or api keys"))
	}
	for i, k := range c.APIKeys {
		if (k.Key == "") == (k.Hash == "") {
			errs = append(errs, fmt.Errorf("auth: api key %d (%q) needs exactly one of key or hash", i, k.ID))
		}
		if k.Principal == "" {
			errs = append(errs, fmt.Errorf("auth: api key %d (%q) has no principal", i, k.ID))
		}
	}
	return errors.Join(errs...)
}

// Authenticators builds the authenticators described by c, JWT first.
func (c Config) Authenticators() []Authenticator {
	var auths []Authenticator
	if c.JWT.Secret != "" {
		auths = append(auths, NewJWTAuthenticator(JWTConfig{
			Issuer:      c.JWT.Issuer,
			Audience:    c.JWT.Audience,
			TenantClaim: c.JWT.TenantClaim,
			RolesClaim:  c.JWT.RolesClaim,
			Leeway:      c.JWT.Leeway,
		}, NewStaticKeyProvider([]byte(c.JWT.Secret))))
	}
	if len(c.APIKeys) > 0 {
		store := NewMemoryAPIKeyStore()
		for _, k := range c.APIKeys {
			hash := k.Hash
			if k.Key != "" {
				hash = HashAPIKey(k.Key)
			}
			store.Add(&APIKeyInfo{
				ID:        k.ID,
				KeyHash:   hash,
				Principal: k.Principal,
				TenantID:  k.TenantID,
				Roles:     k.Roles,
				ExpiresAt: k.ExpiresAt,
			})
		}
		auths = append(auths, NewAPIKeyAuthenticator(APIKeyConfig{}, store))
	}
	return auths
}

// Authorizer returns the role authorizer of c. Without configured grants
// every authenticated identity is permitted.
func (c Config) Authorizer() Authorizer {
	if !c.Enabled || len(c.Roles.Grants) == 0 {
		return AllowAllAuthorizer{}
	}
	return NewRoleAuthorizer(c.Roles)
}

// HTTP returns the authentication middleware for c.
func (c Config) HTTP() func(http.Handler) http.Handler {
	if !c.Enabled {
		return Anonymous(c.AnonymousOwner)
	}
	return Middleware(c.Authenticators()...)
}
