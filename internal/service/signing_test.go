package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"parlay.app/coordinator/common/id"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/service"
)

var _ = Describe("SigningService", func() {
	var (
		svc         service.SigningService
		provider    *mockStoreProvider
		providerAPI *mockProviderAPI
		reconciler  *mockReconciler
		ctx         context.Context
		agreement   *model.Agreement
		room        *model.Room
	)

	const (
		agreementID   = int64(700)
		roomID        = int64(100)
		investorID    = int64(10)
		agentID       = int64(20)
		publicBaseURL = "https://coordinator.parlay.app"
		dashboardURL  = "https://dashboard.parlay.app"
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		provider = newMockStoreProvider()
		providerAPI = &mockProviderAPI{}
		reconciler = &mockReconciler{}
		svc = service.NewSigningService(&mockTxRunner{provider: provider}, providerAPI, reconciler, 15*time.Minute, publicBaseURL, dashboardURL)

		envID := "env-700"
		agentProfileID := agentID
		agreement = &model.Agreement{
			ID:                   agreementID,
			RoomID:               roomID,
			DealID:               1,
			Status:               model.AgreementStatusSent,
			SignerMode:           model.SignerModeBoth,
			EnvelopeID:           &envID,
			AgentProfileID:       &agentProfileID,
			InvestorRecipientID:  "1",
			AgentRecipientID:     "2",
			InvestorClientUserID: "cu-inv",
			AgentClientUserID:    "cu-agt",
		}
		room = &model.Room{ID: roomID, DealID: 1, InvestorID: investorID, AgentID: agentID, Status: model.RoomStatusActive}

		reconciler.reconcileFn = func(_ context.Context, _ int64) (*model.Agreement, error) {
			return agreement, nil
		}
		provider.rooms.getByIDFn = func(_ context.Context, _ int64) (*model.Room, error) {
			return room, nil
		}
		provider.profiles.getByIDFn = func(_ context.Context, profileID int64) (*model.Profile, error) {
			if profileID == investorID {
				return &model.Profile{ID: investorID, Role: model.RoleInvestor, Name: "Ira Investor", Email: "ira@example.com"}, nil
			}
			return &model.Profile{ID: agentID, Role: model.RoleAgent, Name: "Avery Agent", Email: "avery@example.com"}, nil
		}
	})

	Describe("CreateSession", func() {
		It("reconciles first and returns a session URL for the investor", func() {
			var view esign.RecipientViewRequest
			providerAPI.createViewFn = func(_ context.Context, envelopeID string, v esign.RecipientViewRequest) (string, error) {
				Expect(envelopeID).To(Equal("env-700"))
				view = v
				return "https://sign.example.com/s/abc", nil
			}

			session, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(reconciler.reconcileCalls).To(Equal(1))
			Expect(session.SigningURL).To(Equal("https://sign.example.com/s/abc"))
			Expect(view.ClientUserID).To(Equal("cu-inv"))
			Expect(view.ReturnURL).To(HavePrefix(publicBaseURL + "/api/v1/signing/return?token="))
		})

		It("stores a signing token bound to the agreement and role", func() {
			var stored *model.SigningToken
			provider.signingTokens.createFn = func(_ context.Context, tok *model.SigningToken) error {
				stored = tok
				return nil
			}

			session, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "https://app.example.com/done")

			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeNil())
			Expect(stored.Token).To(Equal(session.Token))
			Expect(stored.AgreementID).To(Equal(agreementID))
			Expect(stored.Role).To(Equal(model.RoleInvestor))
			Expect(stored.ReturnURL).To(Equal("https://app.example.com/done"))
			Expect(stored.ExpiresAt).To(BeTemporally("~", time.Now().Add(15*time.Minute), time.Minute))
		})

		It("blocks the agent until the investor has signed", func() {
			_, err := svc.CreateSession(ctx, agreementID, agentID, model.RoleAgent, "")

			Expect(service.IsKind(err, service.KindConflict)).To(BeTrue())
			Expect(service.CodeOf(err)).To(Equal(service.CodeOutOfSequence))
		})

		It("admits the agent once the investor's signature is recorded", func() {
			now := time.Now()
			agreement.InvestorSignedAt = &now
			agreement.Status = model.AgreementStatusInvestorSigned

			session, err := svc.CreateSession(ctx, agreementID, agentID, model.RoleAgent, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(session.SigningURL).NotTo(BeEmpty())
		})

		It("rejects a second signature from the same role", func() {
			now := time.Now()
			agreement.InvestorSignedAt = &now
			agreement.Status = model.AgreementStatusInvestorSigned

			_, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "")

			Expect(service.IsKind(err, service.KindConflict)).To(BeTrue())
		})

		It("enforces the signer mode", func() {
			agreement.SignerMode = model.SignerModeInvestorOnly

			_, err := svc.CreateSession(ctx, agreementID, agentID, model.RoleAgent, "")

			Expect(service.IsKind(err, service.KindAuthorization)).To(BeTrue())
		})

		It("demands regeneration when signer identifiers are missing", func() {
			agreement.InvestorClientUserID = ""

			_, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "")

			Expect(service.IsKind(err, service.KindValidation)).To(BeTrue())
			Expect(service.CodeOf(err)).To(Equal(service.CodeRegenerateRequired))
		})

		It("refuses signatures on agreements in attorney review", func() {
			agreement.Status = model.AgreementStatusAttorneyReviewPending

			_, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "")

			Expect(service.IsKind(err, service.KindConflict)).To(BeTrue())
		})

		It("falls back to local state when the inline reconcile fails", func() {
			reconciler.reconcileFn = func(_ context.Context, _ int64) (*model.Agreement, error) {
				return nil, service.NewUpstream("provider down", nil)
			}
			provider.agreements.getByIDFn = func(_ context.Context, _ int64) (*model.Agreement, error) {
				return agreement, nil
			}

			session, err := svc.CreateSession(ctx, agreementID, investorID, model.RoleInvestor, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(session.SigningURL).NotTo(BeEmpty())
		})

		It("rejects an actor who is not the recorded signer", func() {
			_, err := svc.CreateSession(ctx, agreementID, int64(999), model.RoleInvestor, "")
			Expect(service.IsKind(err, service.KindAuthorization)).To(BeTrue())
		})

		It("honours the agent recorded on the agreement over the room", func() {
			swappedAgent := int64(30)
			agreement.AgentProfileID = &swappedAgent
			now := time.Now()
			agreement.InvestorSignedAt = &now

			_, err := svc.CreateSession(ctx, agreementID, agentID, model.RoleAgent, "")
			Expect(service.IsKind(err, service.KindAuthorization)).To(BeTrue())

			_, err = svc.CreateSession(ctx, agreementID, swappedAgent, model.RoleAgent, "")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("CompleteReturn", func() {
		var token *model.SigningToken

		BeforeEach(func() {
			token = &model.SigningToken{
				Token:       "tok-1",
				AgreementID: agreementID,
				Role:        model.RoleInvestor,
				ReturnURL:   "https://dashboard.parlay.app/rooms/100",
				ExpiresAt:   time.Now().Add(10 * time.Minute),
			}
			provider.signingTokens.getFn = func(_ context.Context, _ string) (*model.SigningToken, error) {
				return token, nil
			}
		})

		It("consumes the token, reconciles and redirects with context", func() {
			redirect, err := svc.CompleteReturn(ctx, "tok-1", "signing_complete")

			Expect(err).NotTo(HaveOccurred())
			Expect(redirect).To(ContainSubstring("agreement_id=700"))
			Expect(redirect).To(ContainSubstring("event=signing_complete"))
			Expect(reconciler.reconcileCalls).To(Equal(1))
		})

		It("returns the cached redirect on repeat deliveries without reconciling again", func() {
			cached := "https://dashboard.parlay.app/rooms/100?agreement_id=700&event=signing_complete"
			token.Used = true
			token.RedirectURL = &cached
			provider.signingTokens.consumeFn = func(_ context.Context, _ string, _ string, _ time.Time) (bool, error) {
				return false, nil
			}

			redirect, err := svc.CompleteReturn(ctx, "tok-1", "signing_complete")

			Expect(err).NotTo(HaveOccurred())
			Expect(redirect).To(Equal(cached))
			Expect(reconciler.reconcileCalls).To(BeZero())
		})

		It("treats expired unused tokens as unknown", func() {
			token.ExpiresAt = time.Now().Add(-time.Minute)

			_, err := svc.CompleteReturn(ctx, "tok-1", "")

			Expect(service.IsKind(err, service.KindNotFound)).To(BeTrue())
		})

		It("rejects unknown tokens", func() {
			provider.signingTokens.getFn = nil

			_, err := svc.CompleteReturn(ctx, "tok-ghost", "")

			Expect(service.IsKind(err, service.KindNotFound)).To(BeTrue())
		})
	})
})
