package auth

import (
	"context"
	"strings"
)

// Role is a named permission group held by a user.
type Role string

const (
	RoleOrderTeam     Role = "order_team"
	RoleInventoryTeam Role = "inventory_team"
	RolePurchaseTeam  Role = "purchase_team"
	RoleAccounts      Role = "accounts"
	RoleSalesTeam     Role = "sales_team"
	RolePurchaseHead  Role = "purchase_head"
	RoleAdmin         Role = "admin"
	RolePlatformAdmin Role = "platform_admin"
)

// AllRoles lists every role the portal knows about.
var AllRoles = []Role{
	RoleOrderTeam, RoleInventoryTeam, RolePurchaseTeam, RoleAccounts,
	RoleSalesTeam, RolePurchaseHead, RoleAdmin, RolePlatformAdmin,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, k := range AllRoles {
		if r == k {
			return true
		}
	}
	return false
}

// RequestContext identifies the caller of every service operation.
type RequestContext struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Username  string `json:"username"`
	Roles     []Role `json:"roles"`
}

// Has reports whether the caller holds role r.
func (rc RequestContext) Has(r Role) bool {
	for _, have := range rc.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasAny reports whether the caller holds at least one of roles.
func (rc RequestContext) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if rc.Has(r) {
			return true
		}
	}
	return false
}

// IsPlatformAdmin callers see and act on every tenant.
func (rc RequestContext) IsPlatformAdmin() bool {
	return rc.Has(RolePlatformAdmin)
}

// SalesOnly reports a caller whose only operational role is sales_team.
// Such users see their own requests on the dashboard.
func (rc RequestContext) SalesOnly() bool {
	if !rc.Has(RoleSalesTeam) {
		return false
	}
	return !rc.HasAny(RoleAdmin, RolePlatformAdmin, RoleAccounts, RoleOrderTeam,
		RoleInventoryTeam, RolePurchaseTeam, RolePurchaseHead)
}

// ParseRoles splits a comma separated role list, dropping unknown names.
func ParseRoles(s string) []Role {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		r := Role(strings.TrimSpace(part))
		if r.Valid() {
			roles = append(roles, r)
		}
	}
	return roles
}

// JoinRoles is the inverse of ParseRoles.
func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

type ctxKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the caller attached by the auth middleware.
func FromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(RequestContext)
	return rc, ok
}
