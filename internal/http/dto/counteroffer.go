package dto

import (
	"parlay.app/coordinator/internal/model"
)

type CounterOfferResponse struct {
	ID            int64          `json:"id"`
	RoomID        int64          `json:"room_id"`
	FromRole      string         `json:"from_role"`
	ToRole        string         `json:"to_role"`
	Status        string         `json:"status"`
	TermsDelta    map[string]any `json:"terms_delta"`
	SupersededBy  *int64         `json:"superseded_by,omitempty"`
	RespondedBy   *string        `json:"responded_by,omitempty"`
	RespondedAt   *string        `json:"responded_at,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

func ToCounterOfferResponse(co *model.CounterOffer) CounterOfferResponse {
	resp := CounterOfferResponse{
		ID:           co.ID,
		RoomID:       co.RoomID,
		FromRole:     string(co.FromRole),
		ToRole:       string(co.ToRole),
		Status:       string(co.Status),
		TermsDelta:   co.TermsDelta,
		SupersededBy: co.SupersededBy,
		RespondedAt:  formatTime(co.RespondedAt),
		CreatedAt:    co.CreatedAt.Format(timeLayout),
	}
	if co.RespondedBy != nil {
		s := string(*co.RespondedBy)
		resp.RespondedBy = &s
	}
	return resp
}
