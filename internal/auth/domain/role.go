package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole reports a role outside the closed enumeration.
var ErrUnknownRole = errors.New("domain: unknown role")

// Role is the closed set of actor roles. Every value below roleCount must
// have an authorization strategy registered.
type Role uint8

const (
	RoleGuest Role = iota
	RoleUser
	RoleModerator
	RoleAdmin

	roleCount
)

// RoleCount is the number of defined roles.
const RoleCount = int(roleCount)

var roleNames = [roleCount]string{
	RoleGuest:     "guest",
	RoleUser:      "user",
	RoleModerator: "moderator",
	RoleAdmin:     "admin",
}

// Roles lists every role in declaration order.
func Roles() []Role {
	out := make([]Role, 0, RoleCount)
	for r := range roleCount {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool { return r < roleCount }

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// ParseRole maps a stored or claimed role name back to a Role.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == s {
			return Role(r), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
