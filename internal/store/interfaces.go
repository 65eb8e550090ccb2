package store

import (
	"context"
	"errors"
	"time"

	"parlay.app/coordinator/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// RoomStore defines the contract for negotiation room data access
type RoomStore interface {
	GetByID(ctx context.Context, id int64) (*model.Room, error)
	// GetForUpdate locks the room row for the duration of the enclosing
	// transaction. All room mutations go through this lock.
	GetForUpdate(ctx context.Context, id int64) (*model.Room, error)
	UpdateProposedTerms(ctx context.Context, id int64, terms model.Terms, requiresRegenerate bool) error
	SetRequiresRegenerate(ctx context.Context, id int64, v bool) error
	SetCurrentAgreement(ctx context.Context, id int64, agreementID *int64) error
	UpdateStatus(ctx context.Context, id int64, status model.RoomStatus) error
}

// CounterOfferStore defines the contract for counter-offer data access
type CounterOfferStore interface {
	GetByID(ctx context.Context, id int64) (*model.CounterOffer, error)
	GetForUpdate(ctx context.Context, id int64) (*model.CounterOffer, error)
	Create(ctx context.Context, offer *model.CounterOffer) error
	ListPendingByRoom(ctx context.Context, roomID int64) ([]model.CounterOffer, error)
	// SupersedePendingByRoom marks every pending counter in the room except
	// exceptID as superseded by supersededBy. Idempotent: already-superseded
	// rows are untouched.
	SupersedePendingByRoom(ctx context.Context, roomID int64, exceptID int64, supersededBy *int64) error
	// MarkResponded transitions a pending counter to accepted/declined. Rows
	// that are no longer pending are not touched.
	MarkResponded(ctx context.Context, id int64, status model.CounterOfferStatus, responder model.Role, at time.Time) error
	MarkSuperseded(ctx context.Context, id int64, supersededBy int64) error
}

// AgreementStore defines the contract for agreement data access
type AgreementStore interface {
	GetByID(ctx context.Context, id int64) (*model.Agreement, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Agreement, error)
	GetByEnvelopeID(ctx context.Context, envelopeID string) (*model.Agreement, error)
	Create(ctx context.Context, agreement *model.Agreement) error
	// SetEnvelope records the newly created envelope and its per-signer
	// identifiers, moving the agreement to sent.
	SetEnvelope(ctx context.Context, params SetEnvelopeParams) error
	SetEnvelopeStatus(ctx context.Context, id int64, envelopeStatus string) error
	// UpdateStatus changes status only for non-terminal agreements; a
	// superseded or voided agreement is never mutated back.
	UpdateStatus(ctx context.Context, id int64, status model.AgreementStatus) error
	SetReviewEndsAt(ctx context.Context, id int64, at time.Time) error
	// MarkSigned sets the role's signed timestamp only if it is not already
	// set. Returns true if the row changed.
	MarkSigned(ctx context.Context, id int64, role model.Role, at time.Time) (bool, error)
	// SetSignedDocumentURL persists the combined document URL only when no
	// URL is recorded yet. Returns true if the row changed.
	SetSignedDocumentURL(ctx context.Context, id int64, url string) (bool, error)
	SetAgentSigner(ctx context.Context, id int64, agentProfileID int64, clientUserID string) error
	// ListReconcilable returns non-terminal agreements with a known envelope
	// id, for full reconciliation sweeps.
	ListReconcilable(ctx context.Context, limit int32) ([]model.Agreement, error)
}

// ConnectionStore defines the contract for provider connection data access
type ConnectionStore interface {
	GetActive(ctx context.Context) (*model.ProviderConnection, error)
	Create(ctx context.Context, conn *model.ProviderConnection) error
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
}

// SigningTokenStore defines the contract for signing token data access
type SigningTokenStore interface {
	Create(ctx context.Context, token *model.SigningToken) error
	Get(ctx context.Context, token string) (*model.SigningToken, error)
	// Consume marks the token used and records the redirect result. Returns
	// false without error when the token was already consumed; the caller
	// then re-reads the cached result.
	Consume(ctx context.Context, token string, redirectURL string, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context) error
}

// AuditLogStore is the append-only audit log keyed by agreement/room.
type AuditLogStore interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
	ListByAgreement(ctx context.Context, agreementID int64, limit int32) ([]model.AuditEntry, error)
	ListByRoom(ctx context.Context, roomID int64, limit int32) ([]model.AuditEntry, error)
}

// DealStore defines the contract for deal data access
type DealStore interface {
	GetByID(ctx context.Context, id int64) (*model.Deal, error)
	SetFullySigned(ctx context.Context, id int64, v bool) error
}

// ProfileStore defines the contract for profile data access
type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
	GetByAPIToken(ctx context.Context, token string) (*model.Profile, error)
}

// SetEnvelopeParams carries everything persisted when an envelope is first
// created for an agreement.
type SetEnvelopeParams struct {
	AgreementID          int64
	EnvelopeID           string
	EnvelopeStatus       string
	InvestorRecipientID  string
	AgentRecipientID     string
	InvestorClientUserID string
	AgentClientUserID    string
}
