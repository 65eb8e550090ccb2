package model

import "time"

// Deal is the top-level transaction a room negotiates under. Jurisdiction
// drives the attorney-review window; FullySigned is the propagated flag
// reconciliation keeps in sync with agreement state.
type Deal struct {
	ID           int64     `json:"id"`
	Jurisdiction string    `json:"jurisdiction"`
	FullySigned  bool      `json:"fully_signed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
