package model

import (
	"fmt"
	"time"
)

// Profile is read-mostly participant identity used for signer naming and
// authorization checks. Placeholder agent profiles carry an unreachable
// email so a placeholder can never complete a signature.
type Profile struct {
	ID          int64     `json:"id"`
	Role        Role      `json:"role"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Placeholder bool      `json:"placeholder"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlaceholderEmail builds the unreachable address used for placeholder agent
// signers on a deal's envelope.
func PlaceholderEmail(dealID int64) string {
	return fmt.Sprintf("placeholder+%d@parlay.invalid", dealID)
}
