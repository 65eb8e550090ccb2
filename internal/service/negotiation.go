package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/store"
)

// ResponseAction is what the receiving party does with a pending counter.
type ResponseAction string

const (
	ActionAccept    ResponseAction = "accept"
	ActionDecline   ResponseAction = "decline"
	ActionRecounter ResponseAction = "recounter"
)

// ResponseResult carries the concrete next state so callers can render it
// without re-querying.
type ResponseResult struct {
	State      string              `json:"state"`
	Counter    *model.CounterOffer `json:"counter"`
	NewCounter *model.CounterOffer `json:"new_counter,omitempty"`
}

type NegotiationService interface {
	CreateCounter(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role, delta model.Terms) (*model.CounterOffer, error)
	Respond(ctx context.Context, counterID int64, actorProfileID int64, actorRole model.Role, action ResponseAction, newDelta model.Terms) (*ResponseResult, error)
	// PendingCounter returns the room's single pending counter, or a not-found
	// error when nothing is awaiting a response.
	PendingCounter(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role) (*model.CounterOffer, error)
}

type negotiationService struct {
	txRunner TxRunner
}

func NewNegotiationService(txRunner TxRunner) NegotiationService {
	return &negotiationService{txRunner: txRunner}
}

// CreateCounter opens a new pending counter offer, atomically superseding any
// other pending counters in the room. The room row lock serializes
// concurrent negotiation mutations per room.
func (s *negotiationService) CreateCounter(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role, delta model.Terms) (*model.CounterOffer, error) {
	if err := validateTermsDelta(delta); err != nil {
		return nil, err
	}

	var counter *model.CounterOffer
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

		newID := id.New()
		if err := stores.CounterOffers().SupersedePendingByRoom(ctx, roomID, newID, &newID); err != nil {
			return fmt.Errorf("superseding pending counters: %w", err)
		}

		counter = &model.CounterOffer{
			ID:                    newID,
			RoomID:                roomID,
			FromRole:              actorRole,
			ToRole:                actorRole.Opposite(),
			Status:                model.CounterOfferStatusPending,
			TermsDelta:            delta,
			OriginalTermsSnapshot: room.ProposedTerms.Clone(),
		}
		if err := stores.CounterOffers().Create(ctx, counter); err != nil {
			return fmt.Errorf("creating counter offer: %w", err)
		}

		return stores.AuditLog().Append(ctx, &model.AuditEntry{
			ID:     id.New(),
			RoomID: &roomID,
			Actor:  string(actorRole),
			Action: "counter_created",
			Details: map[string]any{
				"counter_id":  counter.ID,
				"terms_delta": delta,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "counter offer created",
		"counter_id", counter.ID,
		"room_id", roomID,
		"from_role", actorRole,
	)
	return counter, nil
}

func (s *negotiationService) PendingCounter(ctx context.Context, roomID int64, actorProfileID int64, actorRole model.Role) (*model.CounterOffer, error) {
	var counter *model.CounterOffer
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		room, err := stores.Rooms().GetByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("room not found")
			}
			return fmt.Errorf("loading room: %w", err)
		}
		if room.ParticipantID(actorRole) != actorProfileID {
			return NewAuthorization("actor is not a participant of this room")
		}

		pending, err := stores.CounterOffers().ListPendingByRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("listing pending counters: %w", err)
		}
		if len(pending) == 0 {
			return NewNotFound("no pending counter offer in this room")
		}
		counter = &pending[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counter, nil
}

// Respond applies accept/decline/recounter to a pending counter. The
// status != pending guard makes "accept wins" deterministic: a concurrent
// conflicting response loses with a conflict error instead of silently
// applying.
func (s *negotiationService) Respond(ctx context.Context, counterID int64, actorProfileID int64, actorRole model.Role, action ResponseAction, newDelta model.Terms) (*ResponseResult, error) {
	var result *ResponseResult
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		// Resolve the room first so locks are always taken room-then-counter.
		peek, err := stores.CounterOffers().GetByID(ctx, counterID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("counter offer not found")
			}
			return fmt.Errorf("loading counter offer: %w", err)
		}

		room, err := stores.Rooms().GetForUpdate(ctx, peek.RoomID)
		if err != nil {
			return fmt.Errorf("loading room: %w", err)
		}

		counter, err := stores.CounterOffers().GetForUpdate(ctx, counterID)
		if err != nil {
			return fmt.Errorf("reloading counter offer: %w", err)
		}

		if room.IsExpired() {
			return NewConflict(CodeRoomExpired, "room has expired")
		}
		if !counter.IsPending() {
			return NewConflict(CodeNotPending, fmt.Sprintf("counter offer is %s, not pending", counter.Status))
		}
		if actorRole != counter.ToRole {
			return NewAuthorization("counter offer is not addressed to this role")
		}
		if room.ParticipantID(actorRole) != actorProfileID {
			return NewAuthorization("actor is not a participant of this room")
		}

		switch action {
		case ActionAccept:
			result, err = s.accept(ctx, stores, room, counter, actorRole)
		case ActionDecline:
			result, err = s.decline(ctx, stores, room, counter, actorRole)
		case ActionRecounter:
			result, err = s.recounter(ctx, stores, room, counter, actorRole, newDelta)
		default:
			err = NewValidation(fmt.Sprintf("unknown action %q", action))
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "counter offer responded",
		"counter_id", counterID,
		"action", action,
		"state", result.State,
	)
	return result, nil
}

// accept merges the delta into the room's terms and invalidates everything
// the acceptance obsoletes, in a fixed idempotent order: accepted counter,
// other pending counters, room, superseded agreement.
func (s *negotiationService) accept(ctx context.Context, stores StoreProvider, room *model.Room, counter *model.CounterOffer, actor model.Role) (*ResponseResult, error) {
	now := time.Now()

	if err := stores.CounterOffers().MarkResponded(ctx, counter.ID, model.CounterOfferStatusAccepted, actor, now); err != nil {
		return nil, fmt.Errorf("accepting counter: %w", err)
	}
	if err := stores.CounterOffers().SupersedePendingByRoom(ctx, room.ID, counter.ID, &counter.ID); err != nil {
		return nil, fmt.Errorf("superseding competing counters: %w", err)
	}

	merged := room.ProposedTerms.Merge(counter.TermsDelta)
	if err := stores.Rooms().UpdateProposedTerms(ctx, room.ID, merged, true); err != nil {
		return nil, fmt.Errorf("updating room terms: %w", err)
	}

	if room.CurrentAgreementID != nil {
		// The accepted terms diverge from the generated document, so the
		// current agreement is obsolete. UpdateStatus leaves terminal
		// agreements alone, keeping retries safe.
		if err := stores.Agreements().UpdateStatus(ctx, *room.CurrentAgreementID, model.AgreementStatusSuperseded); err != nil {
			return nil, fmt.Errorf("superseding current agreement: %w", err)
		}
	}

	if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
		ID:     id.New(),
		RoomID: &room.ID,
		Actor:  string(actor),
		Action: "counter_accepted",
		Details: map[string]any{
			"counter_id":   counter.ID,
			"merged_terms": merged,
		},
	}); err != nil {
		return nil, err
	}

	accepted := *counter
	accepted.Status = model.CounterOfferStatusAccepted
	accepted.RespondedBy = &actor
	accepted.RespondedAt = &now
	return &ResponseResult{State: "accepted", Counter: &accepted}, nil
}

func (s *negotiationService) decline(ctx context.Context, stores StoreProvider, room *model.Room, counter *model.CounterOffer, actor model.Role) (*ResponseResult, error) {
	now := time.Now()

	if err := stores.CounterOffers().MarkResponded(ctx, counter.ID, model.CounterOfferStatusDeclined, actor, now); err != nil {
		return nil, fmt.Errorf("declining counter: %w", err)
	}

	if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
		ID:      id.New(),
		RoomID:  &room.ID,
		Actor:   string(actor),
		Action:  "counter_declined",
		Details: map[string]any{"counter_id": counter.ID},
	}); err != nil {
		return nil, err
	}

	declined := *counter
	declined.Status = model.CounterOfferStatusDeclined
	declined.RespondedBy = &actor
	declined.RespondedAt = &now
	return &ResponseResult{State: "declined", Counter: &declined}, nil
}

// recounter supersedes the current counter and opens a new one with flipped
// roles. The snapshot comes from the room's current terms, not the stale
// snapshot on the old counter, so drift cannot compound across rounds.
func (s *negotiationService) recounter(ctx context.Context, stores StoreProvider, room *model.Room, counter *model.CounterOffer, actor model.Role, newDelta model.Terms) (*ResponseResult, error) {
	if err := validateTermsDelta(newDelta); err != nil {
		return nil, err
	}

	newID := id.New()
	if err := stores.CounterOffers().MarkSuperseded(ctx, counter.ID, newID); err != nil {
		return nil, fmt.Errorf("superseding counter: %w", err)
	}
	if err := stores.CounterOffers().SupersedePendingByRoom(ctx, room.ID, newID, &newID); err != nil {
		return nil, fmt.Errorf("superseding competing counters: %w", err)
	}

	newCounter := &model.CounterOffer{
		ID:                    newID,
		RoomID:                room.ID,
		FromRole:              actor,
		ToRole:                actor.Opposite(),
		Status:                model.CounterOfferStatusPending,
		TermsDelta:            newDelta,
		OriginalTermsSnapshot: room.ProposedTerms.Clone(),
	}
	if err := stores.CounterOffers().Create(ctx, newCounter); err != nil {
		return nil, fmt.Errorf("creating recounter: %w", err)
	}

	if err := stores.AuditLog().Append(ctx, &model.AuditEntry{
		ID:     id.New(),
		RoomID: &room.ID,
		Actor:  string(actor),
		Action: "counter_recountered",
		Details: map[string]any{
			"counter_id":     counter.ID,
			"new_counter_id": newID,
			"terms_delta":    newDelta,
		},
	}); err != nil {
		return nil, err
	}

	superseded := *counter
	superseded.Status = model.CounterOfferStatusSuperseded
	superseded.SupersededBy = &newID
	return &ResponseResult{State: "recountered", Counter: &superseded, NewCounter: newCounter}, nil
}
