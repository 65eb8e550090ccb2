package model

import "fmt"

// Role identifies one of the two negotiating parties. It is a closed
// two-variant enum; anything else is rejected at the boundary.
type Role string

const (
	RoleInvestor Role = "investor"
	RoleAgent    Role = "agent"
)

func (r Role) Valid() bool {
	return r == RoleInvestor || r == RoleAgent
}

// Opposite returns the counterparty role. Total over valid roles.
func (r Role) Opposite() Role {
	if r == RoleInvestor {
		return RoleAgent
	}
	return RoleInvestor
}

// ParseRole converts a wire string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}
