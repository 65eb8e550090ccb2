package model

import "time"

// ProviderConnection is the single active OAuth connection to the signing
// provider. Mutated only by the connection manager on refresh or on the
// initial OAuth callback.
type ProviderConnection struct {
	ID           int64     `json:"id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccountID    string    `json:"account_id"`
	BaseURI      string    `json:"base_uri"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token is expired or will expire within
// the given skew. Expired tokens are treated as absent, not as errors.
func (c *ProviderConnection) Expired(skew time.Duration) bool {
	return time.Now().Add(skew).After(c.ExpiresAt)
}
