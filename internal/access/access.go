// Package access models who is acting on a quote and what they may do.
// Operations check permissions, never role names; the role only selects the
// permission set an actor is created with.
package access

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Actor.Require.
var (
	ErrPermission   = errors.New("actor lacks permission for this operation")
	ErrInactiveUser = errors.New("actor is not active")
)

// Role is the business role of a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVendedor  Role = "vendedor"
	RoleComprador Role = "comprador"
	RoleRevisor   Role = "revisor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole normalizes a stored role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}

// Permission has the form "resource:action", e.g. "quote:approve".
type Permission string

const (
	PermQuoteView     Permission = "quote:view"
	PermQuoteEdit     Permission = "quote:edit"
	PermQuoteSubmit   Permission = "quote:submit"
	PermQuoteReview   Permission = "quote:review"
	PermQuoteDelete   Permission = "quote:delete"
	PermQuotePurchase Permission = "quote:purchase"

	PermAll Permission = "*:*"
)

// Matches reports whether p grants requested. "*:*" grants everything and
// "quote:*" grants every quote action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermAll || p == requested {
		return true
	}
	res, act, ok := strings.Cut(string(p), ":")
	if !ok || act != "*" {
		return false
	}
	reqRes, _, _ := strings.Cut(string(requested), ":")
	return res == reqRes
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin:     {PermAll},
	RoleVendedor:  {PermQuoteView, PermQuoteEdit, PermQuoteSubmit, PermQuoteDelete},
	RoleRevisor:   {PermQuoteView, PermQuoteReview},
	RoleComprador: {PermQuoteView, PermQuotePurchase},
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Active      bool   `json:"isActive"`

	permissions []Permission
}

// NewActor builds an actor carrying the permission set of role.
func NewActor(id, email, displayName string, role Role, active bool) Actor {
	perms := rolePermissions[role]
	return Actor{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		Active:      active,
		permissions: append([]Permission(nil), perms...),
	}
}

// Permissions returns the permissions granted to the actor.
func (a Actor) Permissions() []Permission {
	return append([]Permission(nil), a.permissions...)
}

// Can reports whether the actor holds perm, regardless of active status.
func (a Actor) Can(perm Permission) bool {
	for _, p := range a.permissions {
		if p.Matches(perm) {
			return true
		}
	}
	return false
}

// Require returns ErrInactiveUser or ErrPermission when the actor may not perform perm.
func (a Actor) Require(perm Permission) error {
	if !a.Active {
		return ErrInactiveUser
	}
	if !a.Can(perm) {
		return ErrPermission
	}
	return nil
}

// Name is the label stamped into audit fields.
func (a Actor) Name() string {
	if strings.TrimSpace(a.DisplayName) != "" {
		return a.DisplayName
	}
	return a.Email
}
