package dto

import (
	"time"

	"parlay.app/coordinator/internal/model"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

type AgreementResponse struct {
	ID                int64   `json:"id"`
	DealID            int64   `json:"deal_id"`
	RoomID            int64   `json:"room_id"`
	Status            string  `json:"status"`
	SignerMode        string  `json:"signer_mode"`
	EnvelopeID        *string `json:"envelope_id,omitempty"`
	EnvelopeStatus    string  `json:"envelope_status,omitempty"`
	AgentProfileID    *int64  `json:"agent_profile_id,omitempty"`
	InvestorSignedAt  *string `json:"investor_signed_at,omitempty"`
	AgentSignedAt     *string `json:"agent_signed_at,omitempty"`
	SignedDocumentURL *string `json:"signed_document_url,omitempty"`
	ReviewEndsAt      *string `json:"review_ends_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func ToAgreementResponse(a *model.Agreement) AgreementResponse {
	return AgreementResponse{
		ID:                a.ID,
		DealID:            a.DealID,
		RoomID:            a.RoomID,
		Status:            string(a.Status),
		SignerMode:        string(a.SignerMode),
		EnvelopeID:        a.EnvelopeID,
		EnvelopeStatus:    a.EnvelopeStatus,
		AgentProfileID:    a.AgentProfileID,
		InvestorSignedAt:  formatTime(a.InvestorSignedAt),
		AgentSignedAt:     formatTime(a.AgentSignedAt),
		SignedDocumentURL: a.SignedDocumentURL,
		ReviewEndsAt:      formatTime(a.ReviewEndsAt),
		CreatedAt:         a.CreatedAt.Format(timeLayout),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}
