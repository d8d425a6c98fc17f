package auth

import (
	"sort"
	"strings"
)

// Role is the clinical role carried in a token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RolePatient Role = "patient"
)

// Roles lists every role the gateway knows about.
var Roles = []Role{RoleAdmin, RoleDoctor, RoleNurse, RolePatient}

// Valid returns true for one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Title returns the role name with its first letter upper-cased ("Admin").
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Principal is the authenticated identity derived from a token.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// RoleSet is the capability requirement attached to a route. The empty set
// admits any authenticated principal.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Sorted returns the members in a stable order, for logging.
func (s RoleSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}
