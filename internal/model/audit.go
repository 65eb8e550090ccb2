package model

import "time"

// AuditEntry is one append-only audit record. Entries are never updated or
// deleted; the log is ordered by creation time within an agreement or room.
type AuditEntry struct {
	ID          int64          `json:"id"`
	AgreementID *int64         `json:"agreement_id,omitempty"`
	RoomID      *int64         `json:"room_id,omitempty"`
	Actor       string         `json:"actor"`
	Action      string         `json:"action"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
