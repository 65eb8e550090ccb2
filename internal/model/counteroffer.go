package model

import "time"

type CounterOfferStatus string

const (
	CounterOfferStatusPending    CounterOfferStatus = "pending"
	CounterOfferStatusAccepted   CounterOfferStatus = "accepted"
	CounterOfferStatusDeclined   CounterOfferStatus = "declined"
	CounterOfferStatusSuperseded CounterOfferStatus = "superseded"
)

// CounterOffer is a proposed change to a room's terms awaiting the other
// party's response. OriginalTermsSnapshot is the room's proposed_terms at
// creation time and is never recomputed later.
type CounterOffer struct {
	ID                    int64              `json:"id"`
	RoomID                int64              `json:"room_id"`
	FromRole              Role               `json:"from_role"`
	ToRole                Role               `json:"to_role"`
	Status                CounterOfferStatus `json:"status"`
	TermsDelta            Terms              `json:"terms_delta"`
	OriginalTermsSnapshot Terms              `json:"original_terms_snapshot"`
	SupersededBy          *int64             `json:"superseded_by,omitempty"`
	RespondedBy           *Role              `json:"responded_by,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	RespondedAt           *time.Time         `json:"responded_at,omitempty"`
}

func (c *CounterOffer) IsPending() bool {
	return c.Status == CounterOfferStatusPending
}
