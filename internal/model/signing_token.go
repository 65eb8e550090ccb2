package model

import "time"

// SigningToken is an ephemeral single-use token binding one signing session
// to (agreement, role, return destination). The return handler consumes it
// exactly once; repeat deliveries get the cached redirect.
type SigningToken struct {
	Token       string     `json:"token"`
	AgreementID int64      `json:"agreement_id"`
	Role        Role       `json:"role"`
	ReturnURL   string     `json:"return_url"`
	Used        bool       `json:"used"`
	RedirectURL *string    `json:"redirect_url,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	ConsumedAt  *time.Time `json:"consumed_at,omitempty"`
}

// IsValid reports whether the token may still start or complete a session.
// Expiry makes a token absent, not an error.
func (t *SigningToken) IsValid() bool {
	return time.Now().Before(t.ExpiresAt)
}
