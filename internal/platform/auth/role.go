package auth

import (
	"fmt"
	"strings"
)

// Role is one of the three closed clinic roles.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleDoctor        Role = "Doctor"
	RolePatient       Role = "Patient"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdministrator, RoleDoctor, RolePatient}

// ParseRole accepts a role name case-insensitively and returns its canonical form.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the canonical role names.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
