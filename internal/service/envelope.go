package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/internal/docgen"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/store"
)

// Provider recipient slots are fixed for the life of an envelope: the
// investor is always recipient 1, the agent recipient 2. Signer swaps reuse
// the slot so tabs and routing stay intact.
const (
	investorRecipientID = "1"
	agentRecipientID    = "2"
)

// EnvelopeAPI is the slice of the provider client the envelope service needs.
type EnvelopeAPI interface {
	CreateEnvelope(ctx context.Context, env esign.EnvelopeDefinition) (*esign.EnvelopeSummary, error)
	GetEnvelope(ctx context.Context, envelopeID string) (*esign.EnvelopeSummary, error)
	DeleteRecipient(ctx context.Context, envelopeID, recipientID string) error
	AddRecipient(ctx context.Context, envelopeID string, signer esign.Signer) error
}

type EnvelopeService interface {
	// CreateOrReuse returns the room's current agreement when its envelope is
	// still usable, otherwise generates a fresh agreement and envelope from
	// the room's current terms.
	CreateOrReuse(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role, signerMode model.SignerMode) (*model.Agreement, error)
	// SwapAgentSigner replaces the agent recipient on a live envelope with a
	// new agent profile, preserving the recipient slot.
	SwapAgentSigner(ctx context.Context, agreementID int64, newAgentProfileID int64) (*model.Agreement, error)
}

type envelopeService struct {
	txRunner TxRunner
	renderer docgen.Renderer
	provider EnvelopeAPI
}

func NewEnvelopeService(txRunner TxRunner, renderer docgen.Renderer, provider EnvelopeAPI) EnvelopeService {
	return &envelopeService{txRunner: txRunner, renderer: renderer, provider: provider}
}

// envelopePrep is what the locked phase hands to the provider calls.
type envelopePrep struct {
	reuse     *model.Agreement
	agreement *model.Agreement
	room      *model.Room
	deal      *model.Deal
	investor  *model.Profile
	agent     *model.Profile
}

func (s *envelopeService) CreateOrReuse(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role, signerMode model.SignerMode) (*model.Agreement, error) {
	if signerMode == "" {
		signerMode = model.SignerModeBoth
	}

	var prep envelopePrep
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		room, err := stores.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("room not found")
			}
			return fmt.Errorf("loading room: %w", err)
		}
		if room.IsExpired() {
			return NewConflict(CodeRoomExpired, "room has expired")
		}
		if room.ParticipantID(actorRole) != actorProfileID {
			return NewAuthorization("actor is not a participant of this room")
		}

		if room.CurrentAgreementID != nil && !room.RequiresRegenerate {
			current, err := stores.Agreements().GetByID(ctx, *room.CurrentAgreementID)
			if err != nil {
				return fmt.Errorf("loading current agreement: %w", err)
			}
			if current.EnvelopeID != nil && !current.Status.IsTerminal() &&
				current.EnvelopeStatus != model.EnvelopeStatusVoided &&
				current.EnvelopeStatus != model.EnvelopeStatusDeclined {
				prep.reuse = current
				return nil
			}
		}

		deal, err := stores.Deals().GetByID(ctx, room.DealID)
		if err != nil {
			return fmt.Errorf("loading deal: %w", err)
		}
		investor, err := stores.Profiles().GetByID(ctx, room.InvestorID)
		if err != nil {
			return fmt.Errorf("loading investor profile: %w", err)
		}
		agent, err := stores.Profiles().GetByID(ctx, room.AgentID)
		if err != nil {
			return fmt.Errorf("loading agent profile: %w", err)
		}

		agreement := &model.Agreement{
			ID:             id.New(),
			DealID:         room.DealID,
			RoomID:         room.ID,
			Status:         model.AgreementStatusDraft,
			SignerMode:     signerMode,
			AgentProfileID: &agent.ID,
		}
		if err := stores.Agreements().Create(ctx, agreement); err != nil {
			return fmt.Errorf("creating agreement: %w", err)
		}

		prep.agreement = agreement
		prep.room = room
		prep.deal = deal
		prep.investor = investor
		prep.agent = agent
		return nil
	})
	if err != nil {
		return nil, err
	}
	if prep.reuse != nil {
		slog.InfoContext(ctx, "reusing current agreement envelope",
			"agreement_id", prep.reuse.ID,
			"envelope_id", *prep.reuse.EnvelopeID,
		)
		return prep.reuse, nil
	}

	// Provider calls happen outside the room lock. Envelope creation is not
	// idempotent upstream, so a failure here leaves an orphaned draft rather
	// than risking a duplicate envelope.
	pdf, err := s.renderer.RenderAgreement(ctx, docgen.RenderRequest{
		DealID:      prep.deal.ID,
		RoomID:      prep.room.ID,
		AgreementID: prep.agreement.ID,
		Terms:       prep.room.ProposedTerms,
	})
	if err != nil {
		return nil, NewUpstream("rendering agreement document", err)
	}

	investorClientUserID := uuid.NewString()
	agentClientUserID := uuid.NewString()

	agentEmail := prep.agent.Email
	if prep.agent.Placeholder {
		agentEmail = model.PlaceholderEmail(prep.deal.ID)
	}

	definition := esign.EnvelopeDefinition{
		EmailSubject: fmt.Sprintf("Commission Agreement — Deal %d", prep.deal.ID),
		Status:       "sent",
		Documents: []esign.Document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(pdf),
			Name:           "Commission Agreement",
			FileExtension:  "pdf",
			DocumentID:     "1",
		}},
		Recipients: esign.Recipients{Signers: []esign.Signer{
			{
				Email:        prep.investor.Email,
				Name:         prep.investor.Name,
				RecipientID:  investorRecipientID,
				RoutingOrder: "1",
				ClientUserID: investorClientUserID,
				Tabs:         signerTabs("investor"),
			},
			{
				Email:        agentEmail,
				Name:         prep.agent.Name,
				RecipientID:  agentRecipientID,
				RoutingOrder: "1",
				ClientUserID: agentClientUserID,
				Tabs:         signerTabs("agent"),
			},
		}},
	}

	summary, err := s.provider.CreateEnvelope(ctx, definition)
	if err != nil {
		return nil, NewUpstream("creating envelope", err)
	}

	var result *model.Agreement
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Agreements().SetEnvelope(ctx, store.SetEnvelopeParams{
			AgreementID:          prep.agreement.ID,
			EnvelopeID:           summary.EnvelopeID,
			EnvelopeStatus:       summary.Status,
			InvestorRecipientID:  investorRecipientID,
			AgentRecipientID:     agentRecipientID,
			InvestorClientUserID: investorClientUserID,
			AgentClientUserID:    agentClientUserID,
		}); err != nil {
			return fmt.Errorf("recording envelope: %w", err)
		}
		if err := stores.Rooms().SetCurrentAgreement(ctx, prep.room.ID, &prep.agreement.ID); err != nil {
			return fmt.Errorf("setting current agreement: %w", err)
		}
		if err := stores.Rooms().SetRequiresRegenerate(ctx, prep.room.ID, false); err != nil {
			return fmt.Errorf("clearing regenerate flag: %w", err)
		}

		if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
			ID:          id.New(),
			AgreementID: &prep.agreement.ID,
			RoomID:      &prep.room.ID,
			Actor:       string(actorRole),
			Action:      "envelope_created",
			Details: map[string]any{
				"envelope_id": summary.EnvelopeID,
				"signer_mode": signerMode,
			},
		}); err != nil {
			return err
		}

		result, err = stores.Agreements().GetByID(ctx, prep.agreement.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "envelope created",
		"agreement_id", result.ID,
		"room_id", prep.room.ID,
		"envelope_id", summary.EnvelopeID,
	)
	return result, nil
}

func (s *envelopeService) SwapAgentSigner(ctx context.Context, agreementID int64, newAgentProfileID int64) (*model.Agreement, error) {
	var (
		agreement *model.Agreement
		newAgent  *model.Profile
		dealID    int64
		noop      bool
	)
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		a, err := stores.Agreements().GetForUpdate(ctx, agreementID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("agreement not found")
			}
			return fmt.Errorf("loading agreement: %w", err)
		}

		if a.AgentProfileID != nil && *a.AgentProfileID == newAgentProfileID {
			agreement = a
			noop = true
			return nil
		}

		room, err := stores.Rooms().GetByID(ctx, a.RoomID)
		if err != nil {
			return fmt.Errorf("loading room: %w", err)
		}
		if room.RequiresRegenerate {
			return NewConflict(CodeRegenerateRequired, "accepted terms diverge from the envelope document; regenerate instead of swapping signers")
		}
		if a.EnvelopeID == nil {
			return NewValidationCode(CodeRegenerateRequired, "agreement has no envelope")
		}
		if a.EnvelopeStatus == model.EnvelopeStatusVoided || a.EnvelopeStatus == model.EnvelopeStatusDeclined {
			return NewConflict(CodeRegenerateRequired, "envelope is dead; regenerate the agreement instead of swapping signers")
		}
		if a.EnvelopeStatus == model.EnvelopeStatusCompleted || a.Status.IsTerminal() {
			return NewConflict(CodeEnvelopeCompleted, "envelope is completed; the signed document cannot change signers")
		}
		if a.AgentSignedAt != nil {
			return NewConflict(CodeEnvelopeCompleted, "agent has already signed this envelope")
		}

		newAgent, err = stores.Profiles().GetByID(ctx, newAgentProfileID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("agent profile not found")
			}
			return fmt.Errorf("loading new agent profile: %w", err)
		}
		if newAgent.Role != model.RoleAgent {
			return NewValidation("replacement profile is not an agent")
		}

		agreement = a
		dealID = a.DealID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return agreement, nil
	}

	// The stored envelope_status is advisory; ask the provider before touching
	// recipients so a swap never races a completion the webhook has not
	// delivered yet.
	summary, err := s.provider.GetEnvelope(ctx, *agreement.EnvelopeID)
	if err != nil {
		return nil, NewUpstream("checking envelope status", err)
	}
	switch summary.Status {
	case model.EnvelopeStatusVoided, model.EnvelopeStatusDeclined:
		return nil, NewConflict(CodeRegenerateRequired, "envelope is dead; regenerate the agreement instead of swapping signers")
	case model.EnvelopeStatusCompleted:
		return nil, NewConflict(CodeEnvelopeCompleted, "provider reports the envelope completed; the signed document cannot change signers")
	}

	// Delete-then-add keeps the recipient slot stable. The add carries a new
	// client user id so any signing URL issued to the old agent is dead.
	newClientUserID := uuid.NewString()
	agentEmail := newAgent.Email
	if newAgent.Placeholder {
		agentEmail = model.PlaceholderEmail(dealID)
	}

	if err := s.provider.DeleteRecipient(ctx, *agreement.EnvelopeID, agentRecipientID); err != nil {
		// Some providers replace a signer in place on add, so a failed delete
		// is not fatal on its own.
		slog.WarnContext(ctx, "failed to delete agent recipient, attempting add anyway",
			"error", err,
			"agreement_id", agreementID,
			"envelope_id", *agreement.EnvelopeID,
		)
	}
	if err := s.provider.AddRecipient(ctx, *agreement.EnvelopeID, esign.Signer{
		Email:        agentEmail,
		Name:         newAgent.Name,
		RecipientID:  agentRecipientID,
		RoutingOrder: "1",
		ClientUserID: newClientUserID,
		Tabs:         signerTabs("agent"),
	}); err != nil {
		return nil, NewUpstream("adding replacement agent recipient", err)
	}

	var result *model.Agreement
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Agreements().SetAgentSigner(ctx, agreementID, newAgentProfileID, newClientUserID); err != nil {
			return fmt.Errorf("recording agent signer: %w", err)
		}
		if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
			ID:          id.New(),
			AgreementID: &agreementID,
			RoomID:      &agreement.RoomID,
			Actor:       "admin",
			Action:      "agent_signer_swapped",
			Details: map[string]any{
				"new_agent_profile_id": newAgentProfileID,
			},
		}); err != nil {
			return err
		}
		var err error
		result, err = stores.Agreements().GetByID(ctx, agreementID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "agent signer swapped",
		"agreement_id", agreementID,
		"new_agent_profile_id", newAgentProfileID,
	)
	return result, nil
}

// signerTabs anchors signature fields to role-specific markers embedded in
// the rendered document.
func signerTabs(role string) *esign.Tabs {
	anchor := "/sig_" + role + "/"
	return &esign.Tabs{
		SignHereTabs: []esign.AnchorTab{{
			AnchorString:  anchor,
			AnchorUnits:   "pixels",
			AnchorYOffset: "-8",
		}},
		DateSignedTabs: []esign.AnchorTab{{
			AnchorString: "/date_" + role + "/",
			AnchorUnits:  "pixels",
		}},
	}
}
