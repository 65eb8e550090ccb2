package model

import "time"

type RoomStatus string

const (
	RoomStatusActive  RoomStatus = "active"
	RoomStatusSigned  RoomStatus = "signed"
	RoomStatusExpired RoomStatus = "expired"
)

// Room is the persistent context for one investor–agent negotiation on one
// deal. ProposedTerms is the authoritative baseline for new counters;
// RequiresRegenerate flips true the instant accepted terms diverge from the
// last generated agreement document.
type Room struct {
	ID                 int64      `json:"id"`
	DealID             int64      `json:"deal_id"`
	InvestorID         int64      `json:"investor_id"`
	AgentID            int64      `json:"agent_id"`
	ProposedTerms      Terms      `json:"proposed_terms"`
	RequiresRegenerate bool       `json:"requires_regenerate"`
	CurrentAgreementID *int64     `json:"current_agreement_id,omitempty"`
	Status             RoomStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ParticipantID returns the profile occupying the given role.
func (r *Room) ParticipantID(role Role) int64 {
	if role == RoleInvestor {
		return r.InvestorID
	}
	return r.AgentID
}

func (r *Room) IsExpired() bool {
	return r.Status == RoomStatusExpired
}
