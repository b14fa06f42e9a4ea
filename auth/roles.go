package auth

import (
	"context"
	"slices"
	"strings"
)

// RoleMigrator is the role required to submit batches.
const RoleMigrator = "migrator"

// RoleConfig configures a RoleAuthorizer.
type RoleConfig struct {
	// Grants maps an action to the roles allowed to perform it. A trailing
	// "*" in an action matches any suffix. Actions without a grant are
	// permitted to every authenticated identity.
	Grants map[string][]string `toml:"grants"`

	// Inherits maps a role to the roles it includes, e.g. admin to migrator.
	Inherits map[string][]string `toml:"inherits"`

	// DefaultRole is assumed for identities without roles.
	DefaultRole string `toml:"default_role"`
}

// DefaultRoleConfig requires the migrator role for batch submission and
// lets admin inherit it.
func DefaultRoleConfig() RoleConfig {
	return RoleConfig{
		Grants:   map[string][]string{ActionSubmitBatch: {RoleMigrator}},
		Inherits: map[string][]string{"admin": {RoleMigrator}},
	}
}

// RoleAuthorizer grants actions to roles.
type RoleAuthorizer struct {
	config RoleConfig
}

// NewRoleAuthorizer creates a role authorizer.
func NewRoleAuthorizer(config RoleConfig) *RoleAuthorizer {
	return &RoleAuthorizer{config: config}
}

// Name returns "roles".
func (a *RoleAuthorizer) Name() string {
	return "roles"
}

// Authorize permits the request when one of the subject's effective roles
// is granted the action.
func (a *RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return &AuthzError{Resource: req.Resource, Action: req.Action, Reason: "no identity provided"}
	}

	allowed, restricted := a.grantsFor(req.Action)
	if !restricted {
		return nil
	}
	for _, role := range a.effectiveRoles(req.Subject) {
		if slices.Contains(allowed, role) {
			return nil
		}
	}
	return &AuthzError{
		Subject:  req.Subject.Principal,
		Resource: req.Resource,
		Action:   req.Action,
		Reason:   "requires one of roles " + strings.Join(allowed, ", "),
	}
}

func (a *RoleAuthorizer) grantsFor(action string) (roles []string, restricted bool) {
	for pattern, r := range a.config.Grants {
		if matchAction(pattern, action) {
			roles = append(roles, r...)
			restricted = true
		}
	}
	slices.Sort(roles)
	return slices.Compact(roles), restricted
}

// effectiveRoles expands inheritance breadth first.
func (a *RoleAuthorizer) effectiveRoles(subject *Identity) []string {
	pending := slices.Clone(subject.Roles)
	if len(pending) == 0 && a.config.DefaultRole != "" {
		pending = append(pending, a.config.DefaultRole)
	}

	seen := make(map[string]bool)
	var result []string
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		pending = append(pending, a.config.Inherits[current]...)
	}
	return result
}

func matchAction(pattern, action string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(action, prefix)
	}
	return pattern == action
}

var _ Authorizer = (*RoleAuthorizer)(nil)
