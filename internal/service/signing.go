package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/store"
)

// ViewAPI is the slice of the provider client that issues embedded signing
// session URLs.
type ViewAPI interface {
	CreateRecipientView(ctx context.Context, envelopeID string, view esign.RecipientViewRequest) (string, error)
}

// Reconciler converges one agreement with the provider's envelope state.
// Implemented by the reconcile service; faked in tests.
type Reconciler interface {
	ReconcileAgreement(ctx context.Context, agreementID int64) (*model.Agreement, error)
}

// SessionResult is a live embedded signing session.
type SessionResult struct {
	SigningURL string `json:"signing_url"`
	Token      string `json:"token"`
}

type SigningService interface {
	// CreateSession gates the signer against the agreement's current state and
	// returns a one-time embedded signing URL.
	CreateSession(ctx context.Context, agreementID int64, actorProfileID int64, actorRole model.Role, returnURL string) (*SessionResult, error)
	// CompleteReturn consumes the session token when the signer lands back
	// from the provider, and returns where to redirect them. Idempotent:
	// repeat deliveries get the cached redirect.
	CompleteReturn(ctx context.Context, token string, providerEvent string) (string, error)
}

type signingService struct {
	txRunner      TxRunner
	provider      ViewAPI
	reconciler    Reconciler
	tokenTTL      time.Duration
	publicBaseURL string
	dashboardURL  string
}

func NewSigningService(txRunner TxRunner, provider ViewAPI, reconciler Reconciler, tokenTTL time.Duration, publicBaseURL, dashboardURL string) SigningService {
	return &signingService{
		txRunner:      txRunner,
		provider:      provider,
		reconciler:    reconciler,
		tokenTTL:      tokenTTL,
		publicBaseURL: publicBaseURL,
		dashboardURL:  dashboardURL,
	}
}

func (s *signingService) CreateSession(ctx context.Context, agreementID int64, actorProfileID int64, actorRole model.Role, returnURL string) (*SessionResult, error) {
	if !actorRole.Valid() {
		return nil, NewValidation("unknown signer role")
	}

	// Reconcile first so the sequencing gate never denies on stale local
	// state when the other party signed moments ago.
	agreement, err := s.reconciler.ReconcileAgreement(ctx, agreementID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return nil, err
		}
		// A provider blip must not block signing when local state already
		// permits it; fall back to the stored row.
		slog.WarnContext(ctx, "inline reconcile failed, using local state", "agreement_id", agreementID, "error", err)
		agreement = nil
	}

	var profile *model.Profile
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if agreement == nil {
			agreement, err = stores.Agreements().GetByID(ctx, agreementID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return NewNotFound("agreement not found")
				}
				return fmt.Errorf("loading agreement: %w", err)
			}
		}

		room, err := stores.Rooms().GetByID(ctx, agreement.RoomID)
		if err != nil {
			return fmt.Errorf("loading room: %w", err)
		}

		profileID := room.ParticipantID(actorRole)
		if actorRole == model.RoleAgent && agreement.AgentProfileID != nil {
			profileID = *agreement.AgentProfileID
		}
		if profileID != actorProfileID {
			return NewAuthorization("actor is not the recorded signer for this role")
		}

		if err := s.gate(agreement, actorRole); err != nil {
			return err
		}

		profile, err = stores.Profiles().GetByID(ctx, profileID)
		if err != nil {
			return fmt.Errorf("loading signer profile: %w", err)
		}
		if profile.Placeholder {
			return NewConflict(CodeRegenerateRequired, "placeholder signers cannot sign; assign a real agent first")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		dest := returnURL
		if dest == "" {
			dest = s.dashboardURL
		}
		return stores.SigningTokens().Create(ctx, &model.SigningToken{
			Token:       token,
			AgreementID: agreementID,
			Role:        actorRole,
			ReturnURL:   dest,
			ExpiresAt:   time.Now().Add(s.tokenTTL),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("issuing signing token: %w", err)
	}

	providerReturn := s.publicBaseURL + "/api/v1/signing/return?token=" + url.QueryEscape(token)
	signingURL, err := s.provider.CreateRecipientView(ctx, *agreement.EnvelopeID, esign.RecipientViewRequest{
		ReturnURL:            providerReturn,
		AuthenticationMethod: "none",
		Email:                profile.Email,
		UserName:             profile.Name,
		ClientUserID:         agreement.ClientUserID(actorRole),
	})
	if err != nil {
		return nil, NewUpstream("creating signing session", err)
	}

	slog.InfoContext(ctx, "signing session created",
		"agreement_id", agreementID,
		"actor_role", actorRole,
	)
	return &SessionResult{SigningURL: signingURL, Token: token}, nil
}

// gate enforces signer mode, sequencing and completeness against the
// post-reconcile agreement state.
func (s *signingService) gate(agreement *model.Agreement, role model.Role) error {
	if agreement.Status.IsTerminal() || agreement.Status == model.AgreementStatusAttorneyReviewPending {
		return NewConflict(CodeEnvelopeCompleted, fmt.Sprintf("agreement is %s and accepts no further signatures", agreement.Status))
	}
	if !agreement.SignerMode.Allows(role) {
		return NewAuthorization(fmt.Sprintf("signer mode %s does not permit the %s to sign", agreement.SignerMode, role))
	}
	if agreement.SignedAt(role) != nil {
		return NewConflict(CodeEnvelopeCompleted, fmt.Sprintf("%s has already signed", role))
	}
	if agreement.SignerMode == model.SignerModeBoth && role == model.RoleAgent && agreement.InvestorSignedAt == nil {
		return NewConflict(CodeOutOfSequence, "investor must sign before the agent")
	}
	if agreement.EnvelopeID == nil || agreement.RecipientID(role) == "" || agreement.ClientUserID(role) == "" {
		return NewValidationCode(CodeRegenerateRequired, "agreement is missing envelope signer identifiers; regenerate the agreement")
	}
	return nil
}

func (s *signingService) CompleteReturn(ctx context.Context, token string, providerEvent string) (string, error) {
	var (
		redirect    string
		agreementID int64
		consumed    bool
	)
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		tok, err := stores.SigningTokens().Get(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NewNotFound("unknown signing token")
			}
			return fmt.Errorf("loading signing token: %w", err)
		}
		if !tok.Used && !tok.IsValid() {
			return NewNotFound("signing token has expired")
		}

		redirect = buildReturnRedirect(tok.ReturnURL, tok.AgreementID, providerEvent)
		agreementID = tok.AgreementID

		changed, err := stores.SigningTokens().Consume(ctx, token, redirect, time.Now())
		if err != nil {
			return fmt.Errorf("consuming signing token: %w", err)
		}
		if !changed {
			// Already consumed: hand back the recorded redirect so repeat
			// deliveries are byte-identical.
			if tok.RedirectURL != nil {
				redirect = *tok.RedirectURL
			}
			return nil
		}
		consumed = true
		return nil
	})
	if err != nil {
		return "", err
	}

	if consumed {
		// The webhook usually lands first, but converge eagerly so the
		// dashboard the signer returns to reflects their signature.
		if _, err := s.reconciler.ReconcileAgreement(ctx, agreementID); err != nil {
			slog.WarnContext(ctx, "post-return reconcile failed", "agreement_id", agreementID, "error", err)
		}
	}

	return redirect, nil
}

func buildReturnRedirect(base string, agreementID int64, providerEvent string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("agreement_id", fmt.Sprintf("%d", agreementID))
	if providerEvent != "" {
		q.Set("event", providerEvent)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
