package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/core/config"
	"parlay.app/coordinator/internal/docgen"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/queue"
	"parlay.app/coordinator/internal/store"
)

// ReconcileAPI is the slice of the provider client reconciliation reads from.
type ReconcileAPI interface {
	GetEnvelope(ctx context.Context, envelopeID string) (*esign.EnvelopeSummary, error)
	ListRecipients(ctx context.Context, envelopeID string) (*esign.RecipientsResponse, error)
	GetCombinedDocument(ctx context.Context, envelopeID string) ([]byte, error)
}

// WebhookEnvelope is the provider's push notification for one envelope.
type WebhookEnvelope struct {
	EnvelopeID string
	Status     string
	Recipients []esign.RecipientStatus
}

// SweepStats summarizes one full reconciliation pass.
type SweepStats struct {
	Scanned int
	Failed  int
}

type ReconcileService interface {
	Reconciler
	// HandleWebhook applies a provider push notification. Unknown envelopes
	// are a no-op error the transport layer reports without failing delivery.
	HandleWebhook(ctx context.Context, event WebhookEnvelope) error
	// SweepAll polls the provider for every reconcilable agreement. Webhooks
	// are best-effort; the sweep is the backstop that guarantees convergence.
	SweepAll(ctx context.Context, limit int32) (SweepStats, error)
}

type reconcileService struct {
	txRunner TxRunner
	provider ReconcileAPI
	renderer docgen.Renderer
	producer queue.Producer
	review   config.ReviewConfig
}

func NewReconcileService(txRunner TxRunner, provider ReconcileAPI, renderer docgen.Renderer, producer queue.Producer, review config.ReviewConfig) ReconcileService {
	return &reconcileService{
		txRunner: txRunner,
		provider: provider,
		renderer: renderer,
		producer: producer,
		review:   review,
	}
}

// envelopeSnapshot is the provider-side state reconciliation converges on,
// whether it arrived by webhook or by poll.
type envelopeSnapshot struct {
	envelopeStatus string
	recipients     []esign.RecipientStatus
}

// applyOutcome carries the work that must happen after the transaction
// commits: event publishes and the signed-document fetch.
type applyOutcome struct {
	agreement *model.Agreement
	events    []queue.StatusEvent
	fetchDoc  bool
}

func (s *reconcileService) HandleWebhook(ctx context.Context, event WebhookEnvelope) error {
	var outcome *applyOutcome
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		agreement, err := stores.Agreements().GetByEnvelopeID(ctx, event.EnvelopeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound(fmt.Sprintf("no agreement for envelope %s", event.EnvelopeID))
			}
			return fmt.Errorf("resolving envelope: %w", err)
		}

		outcome, err = s.apply(ctx, stores, agreement.ID, envelopeSnapshot{
			envelopeStatus: event.Status,
			recipients:     event.Recipients,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.finish(ctx, outcome)
	return nil
}

func (s *reconcileService) ReconcileAgreement(ctx context.Context, agreementID int64) (*model.Agreement, error) {
	var envelopeID string
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		agreement, err := stores.Agreements().GetByID(ctx, agreementID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("agreement not found")
			}
			return fmt.Errorf("loading agreement: %w", err)
		}
		if agreement.EnvelopeID != nil && !agreement.Status.IsTerminal() {
			envelopeID = *agreement.EnvelopeID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var snap envelopeSnapshot
	if envelopeID != "" {
		summary, err := s.provider.GetEnvelope(ctx, envelopeID)
		if err != nil {
			return nil, NewUpstream("fetching envelope", err)
		}
		recipients, err := s.provider.ListRecipients(ctx, envelopeID)
		if err != nil {
			return nil, NewUpstream("fetching envelope recipients", err)
		}
		snap = envelopeSnapshot{
			envelopeStatus: summary.Status,
			recipients:     recipients.Signers,
		}
	}

	var outcome *applyOutcome
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		var err error
		outcome, err = s.apply(ctx, stores, agreementID, snap)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, outcome)
	return outcome.agreement, nil
}

func (s *reconcileService) SweepAll(ctx context.Context, limit int32) (SweepStats, error) {
	var agreements []model.Agreement
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		var err error
		agreements, err = stores.Agreements().ListReconcilable(ctx, limit)
		if err != nil {
			return fmt.Errorf("listing reconcilable agreements: %w", err)
		}
		return stores.SigningTokens().DeleteExpired(ctx)
	})
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{Scanned: len(agreements)}
	for _, a := range agreements {
		if _, err := s.ReconcileAgreement(ctx, a.ID); err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "sweep reconcile failed", "agreement_id", a.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "reconciliation sweep complete", "scanned", stats.Scanned, "failed", stats.Failed)
	return stats, nil
}

// apply converges one locked agreement onto a provider snapshot. Every effect
// is guarded so replaying the same snapshot is a no-op: status only moves up
// the lattice, signed timestamps set once, terminal rows never change.
func (s *reconcileService) apply(ctx context.Context, stores StoreProvider, agreementID int64, snap envelopeSnapshot) (*applyOutcome, error) {
	agreement, err := stores.Agreements().GetForUpdate(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("locking agreement: %w", err)
	}

	outcome := &applyOutcome{agreement: agreement}
	if agreement.Status == model.AgreementStatusSuperseded || agreement.Status == model.AgreementStatusVoided {
		return outcome, nil
	}

	// A voided or declined envelope kills the agreement and forces the room
	// back through regeneration.
	if snap.envelopeStatus == model.EnvelopeStatusVoided || snap.envelopeStatus == model.EnvelopeStatusDeclined {
		if err := s.void(ctx, stores, agreement, snap.envelopeStatus, outcome); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	if snap.envelopeStatus != "" && snap.envelopeStatus != agreement.EnvelopeStatus {
		if err := stores.Agreements().SetEnvelopeStatus(ctx, agreement.ID, snap.envelopeStatus); err != nil {
			return nil, fmt.Errorf("updating envelope status: %w", err)
		}
		agreement.EnvelopeStatus = snap.envelopeStatus
	}

	if err := s.recordSignatures(ctx, stores, agreement, snap.recipients); err != nil {
		return nil, err
	}

	target, reviewEnds := s.targetStatus(agreement)
	if target != "" && target != agreement.Status {
		forward := target.Rank() > agreement.Status.Rank()
		// The review window elapsing is the one same-rank move permitted.
		reviewDone := agreement.Status == model.AgreementStatusAttorneyReviewPending &&
			target == model.AgreementStatusFullySigned
		if forward || reviewDone {
			if err := s.transition(ctx, stores, agreement, target, reviewEnds, outcome); err != nil {
				return nil, err
			}
		}
	}

	outcome.fetchDoc = s.bothDone(agreement) && agreement.SignedDocumentURL == nil && agreement.EnvelopeID != nil
	return outcome, nil
}

func (s *reconcileService) void(ctx context.Context, stores StoreProvider, agreement *model.Agreement, envelopeStatus string, outcome *applyOutcome) error {
	if err := stores.Agreements().SetEnvelopeStatus(ctx, agreement.ID, envelopeStatus); err != nil {
		return fmt.Errorf("updating envelope status: %w", err)
	}
	if err := stores.Agreements().UpdateStatus(ctx, agreement.ID, model.AgreementStatusVoided); err != nil {
		return fmt.Errorf("voiding agreement: %w", err)
	}
	if err := stores.Rooms().SetRequiresRegenerate(ctx, agreement.RoomID, true); err != nil {
		return fmt.Errorf("flagging room for regeneration: %w", err)
	}
	if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
		ID:          id.New(),
		AgreementID: &agreement.ID,
		RoomID:      &agreement.RoomID,
		Actor:       "provider",
		Action:      "agreement_voided",
		Details:     map[string]any{"envelope_status": envelopeStatus},
	}); err != nil {
		return err
	}

	agreement.Status = model.AgreementStatusVoided
	agreement.EnvelopeStatus = envelopeStatus
	outcome.events = append(outcome.events, queue.StatusEvent{
		AgreementID: agreement.ID,
		RoomID:      agreement.RoomID,
		DealID:      agreement.DealID,
		Status:      string(model.AgreementStatusVoided),
	})
	return nil
}

// recordSignatures matches completed recipients to roles by the recorded
// recipient id and sets the signed timestamp once.
func (s *reconcileService) recordSignatures(ctx context.Context, stores StoreProvider, agreement *model.Agreement, recipients []esign.RecipientStatus) error {
	for _, r := range recipients {
		if !r.Completed() {
			continue
		}

		var role model.Role
		switch r.RecipientID {
		case agreement.InvestorRecipientID:
			role = model.RoleInvestor
		case agreement.AgentRecipientID:
			role = model.RoleAgent
		default:
			continue
		}

		signedAt := time.Now()
		if t := r.SignedTime(); t != nil {
			signedAt = *t
		}

		changed, err := stores.Agreements().MarkSigned(ctx, agreement.ID, role, signedAt)
		if err != nil {
			return fmt.Errorf("recording %s signature: %w", role, err)
		}
		if !changed {
			continue
		}

		if role == model.RoleInvestor {
			agreement.InvestorSignedAt = &signedAt
		} else {
			agreement.AgentSignedAt = &signedAt
		}
		if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
			ID:          id.New(),
			AgreementID: &agreement.ID,
			RoomID:      &agreement.RoomID,
			Actor:       string(role),
			Action:      "signature_recorded",
			Details:     map[string]any{"signed_at": signedAt},
		}); err != nil {
			return err
		}
	}
	return nil
}

// bothDone reports whether every signature the signer mode requires has been
// recorded.
func (s *reconcileService) bothDone(agreement *model.Agreement) bool {
	switch agreement.SignerMode {
	case model.SignerModeInvestorOnly:
		return agreement.InvestorSignedAt != nil
	case model.SignerModeAgentOnly:
		return agreement.AgentSignedAt != nil
	default:
		return agreement.InvestorSignedAt != nil && agreement.AgentSignedAt != nil
	}
}

// targetStatus derives the status the agreement should hold given its
// recorded signatures. reviewEnds is non-zero only when entering the
// attorney-review window.
func (s *reconcileService) targetStatus(agreement *model.Agreement) (model.AgreementStatus, time.Time) {
	if s.bothDone(agreement) {
		if agreement.Status == model.AgreementStatusAttorneyReviewPending {
			if agreement.ReviewEndsAt != nil && time.Now().After(*agreement.ReviewEndsAt) {
				return model.AgreementStatusFullySigned, time.Time{}
			}
			return "", time.Time{}
		}
		return model.AgreementStatusFullySigned, time.Time{}
	}
	if agreement.InvestorSignedAt != nil {
		return model.AgreementStatusInvestorSigned, time.Time{}
	}
	if agreement.AgentSignedAt != nil {
		return model.AgreementStatusAgentSigned, time.Time{}
	}
	if agreement.Status == model.AgreementStatusDraft && agreement.EnvelopeID != nil {
		return model.AgreementStatusSent, time.Time{}
	}
	return "", time.Time{}
}

func (s *reconcileService) transition(ctx context.Context, stores StoreProvider, agreement *model.Agreement, target model.AgreementStatus, reviewEnds time.Time, outcome *applyOutcome) error {
	// A mandated review window intercepts the move to fully signed.
	if target == model.AgreementStatusFullySigned && agreement.Status != model.AgreementStatusAttorneyReviewPending {
		deal, err := stores.Deals().GetByID(ctx, agreement.DealID)
		if err != nil {
			return fmt.Errorf("loading deal: %w", err)
		}
		if s.review.RequiresReview(deal.Jurisdiction) {
			target = model.AgreementStatusAttorneyReviewPending
			reviewEnds = addBusinessDays(time.Now(), s.review.BusinessDays)
		}
	}

	if err := stores.Agreements().UpdateStatus(ctx, agreement.ID, target); err != nil {
		return fmt.Errorf("updating agreement status: %w", err)
	}
	if !reviewEnds.IsZero() {
		if err := stores.Agreements().SetReviewEndsAt(ctx, agreement.ID, reviewEnds); err != nil {
			return fmt.Errorf("setting review window: %w", err)
		}
		agreement.ReviewEndsAt = &reviewEnds
	}

	prev := agreement.Status
	agreement.Status = target

	if target == model.AgreementStatusFullySigned {
		if err := stores.Rooms().UpdateStatus(ctx, agreement.RoomID, model.RoomStatusSigned); err != nil {
			return fmt.Errorf("marking room signed: %w", err)
		}
		if err := stores.Deals().SetFullySigned(ctx, agreement.DealID, true); err != nil {
			return fmt.Errorf("marking deal fully signed: %w", err)
		}
	}

	if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
		ID:          id.New(),
		AgreementID: &agreement.ID,
		RoomID:      &agreement.RoomID,
		Actor:       "system",
		Action:      "status_transition",
		Details: map[string]any{
			"from": prev,
			"to":   target,
		},
	}); err != nil {
		return err
	}

	outcome.events = append(outcome.events, queue.StatusEvent{
		AgreementID: agreement.ID,
		RoomID:      agreement.RoomID,
		DealID:      agreement.DealID,
		Status:      string(target),
	})
	return nil
}

// finish runs the post-commit effects: event publishes and, when all parties
// have signed and no document is archived yet, the combined-document fetch.
// Both are safe to lose; the next reconcile repeats them.
func (s *reconcileService) finish(ctx context.Context, outcome *applyOutcome) {
	for _, event := range outcome.events {
		if err := s.producer.Publish(ctx, event); err != nil {
			slog.ErrorContext(ctx, "publishing status event failed", "agreement_id", event.AgreementID, "error", err)
		}
	}

	if !outcome.fetchDoc {
		return
	}
	if err := s.fetchSignedDocument(ctx, outcome.agreement); err != nil {
		slog.ErrorContext(ctx, "fetching signed document failed", "agreement_id", outcome.agreement.ID, "error", err)
	}
}

func (s *reconcileService) fetchSignedDocument(ctx context.Context, agreement *model.Agreement) error {
	pdf, err := s.provider.GetCombinedDocument(ctx, *agreement.EnvelopeID)
	if err != nil {
		return fmt.Errorf("downloading combined document: %w", err)
	}
	url, err := s.renderer.ArchiveSigned(ctx, agreement.ID, pdf)
	if err != nil {
		return fmt.Errorf("archiving signed document: %w", err)
	}

	return s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		changed, err := stores.Agreements().SetSignedDocumentURL(ctx, agreement.ID, url)
		if err != nil {
			return fmt.Errorf("recording signed document url: %w", err)
		}
		if !changed {
			return nil
		}
		agreement.SignedDocumentURL = &url
		return stores.AuditLog().Append(ctx, &model.AuditEntry{
			ID:          id.New(),
			AgreementID: &agreement.ID,
			RoomID:      &agreement.RoomID,
			Actor:       "system",
			Action:      "signed_document_archived",
			Details:     map[string]any{"url": url},
		})
	})
}

// addBusinessDays advances n business days, skipping weekends.
func addBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}
