package model

import "time"

type AgreementStatus string

const (
	AgreementStatusDraft                 AgreementStatus = "draft"
	AgreementStatusSent                  AgreementStatus = "sent"
	AgreementStatusInvestorSigned        AgreementStatus = "investor_signed"
	AgreementStatusAgentSigned           AgreementStatus = "agent_signed"
	AgreementStatusFullySigned           AgreementStatus = "fully_signed"
	AgreementStatusAttorneyReviewPending AgreementStatus = "attorney_review_pending"
	AgreementStatusSuperseded            AgreementStatus = "superseded"
	AgreementStatusVoided                AgreementStatus = "voided"
)

// statusRank orders active statuses along the signing lattice. Reconciliation
// only ever moves status to a strictly higher rank; superseded/voided sit
// outside the lattice and are terminal.
var statusRank = map[AgreementStatus]int{
	AgreementStatusDraft:                 0,
	AgreementStatusSent:                  1,
	AgreementStatusInvestorSigned:        2,
	AgreementStatusAgentSigned:           2,
	AgreementStatusAttorneyReviewPending: 3,
	AgreementStatusFullySigned:           3,
}

// Rank returns the status position on the signing lattice, or -1 for
// terminal statuses that are not part of it.
func (s AgreementStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether the status permits no further transitions.
func (s AgreementStatus) IsTerminal() bool {
	switch s {
	case AgreementStatusFullySigned, AgreementStatusSuperseded, AgreementStatusVoided:
		return true
	}
	return false
}

// SignerMode controls which parties sign a given agreement.
type SignerMode string

const (
	SignerModeInvestorOnly SignerMode = "investor_only"
	SignerModeAgentOnly    SignerMode = "agent_only"
	SignerModeBoth         SignerMode = "both"
)

// Allows reports whether the mode permits the given role to sign at all.
func (m SignerMode) Allows(role Role) bool {
	switch m {
	case SignerModeInvestorOnly:
		return role == RoleInvestor
	case SignerModeAgentOnly:
		return role == RoleAgent
	default:
		return true
	}
}

// Envelope statuses as reported by the signing provider. Advisory only; the
// local agreement status is the record of truth for coordination.
const (
	EnvelopeStatusCreated   = "created"
	EnvelopeStatusSent      = "sent"
	EnvelopeStatusDelivered = "delivered"
	EnvelopeStatusCompleted = "completed"
	EnvelopeStatusDeclined  = "declined"
	EnvelopeStatusVoided    = "voided"
)

// Agreement is the local record of one signable document for one room. The
// envelope fields mirror the provider's state and are advisory; Status is
// what the rest of the system keys off.
type Agreement struct {
	ID                   int64           `json:"id"`
	DealID               int64           `json:"deal_id"`
	RoomID               int64           `json:"room_id"`
	EnvelopeID           *string         `json:"envelope_id,omitempty"`
	EnvelopeStatus       string          `json:"envelope_status,omitempty"`
	Status               AgreementStatus `json:"status"`
	SignerMode           SignerMode      `json:"signer_mode"`
	AgentProfileID       *int64          `json:"agent_profile_id,omitempty"`
	InvestorSignedAt     *time.Time      `json:"investor_signed_at,omitempty"`
	AgentSignedAt        *time.Time      `json:"agent_signed_at,omitempty"`
	InvestorRecipientID  string          `json:"investor_recipient_id,omitempty"`
	AgentRecipientID     string          `json:"agent_recipient_id,omitempty"`
	InvestorClientUserID string          `json:"investor_client_user_id,omitempty"`
	AgentClientUserID    string          `json:"agent_client_user_id,omitempty"`
	SignedDocumentURL    *string         `json:"signed_document_url,omitempty"`
	ReviewEndsAt         *time.Time      `json:"review_ends_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// RecipientID returns the provider recipient id recorded for the role.
func (a *Agreement) RecipientID(role Role) string {
	if role == RoleInvestor {
		return a.InvestorRecipientID
	}
	return a.AgentRecipientID
}

// ClientUserID returns the embedded-signing identifier recorded for the role.
func (a *Agreement) ClientUserID(role Role) string {
	if role == RoleInvestor {
		return a.InvestorClientUserID
	}
	return a.AgentClientUserID
}

// SignedAt returns the recorded completion timestamp for the role.
func (a *Agreement) SignedAt(role Role) *time.Time {
	if role == RoleInvestor {
		return a.InvestorSignedAt
	}
	return a.AgentSignedAt
}
