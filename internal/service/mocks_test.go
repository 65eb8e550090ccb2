package service_test

import (
	"context"
	"time"

	"parlay.app/coordinator/internal/docgen"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/queue"
	"parlay.app/coordinator/internal/service"
	"parlay.app/coordinator/internal/store"
)

type mockRoomStore struct {
	getByIDFn               func(ctx context.Context, id int64) (*model.Room, error)
	getForUpdateFn          func(ctx context.Context, id int64) (*model.Room, error)
	updateProposedTermsFn   func(ctx context.Context, id int64, terms model.Terms, requiresRegenerate bool) error
	setRequiresRegenerateFn func(ctx context.Context, id int64, v bool) error
	setCurrentAgreementFn   func(ctx context.Context, id int64, agreementID *int64) error
	updateStatusFn          func(ctx context.Context, id int64, status model.RoomStatus) error
}

func (m *mockRoomStore) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockRoomStore) GetForUpdate(ctx context.Context, id int64) (*model.Room, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockRoomStore) UpdateProposedTerms(ctx context.Context, id int64, terms model.Terms, requiresRegenerate bool) error {
	if m.updateProposedTermsFn != nil {
		return m.updateProposedTermsFn(ctx, id, terms, requiresRegenerate)
	}
	return nil
}

func (m *mockRoomStore) SetRequiresRegenerate(ctx context.Context, id int64, v bool) error {
	if m.setRequiresRegenerateFn != nil {
		return m.setRequiresRegenerateFn(ctx, id, v)
	}
	return nil
}

func (m *mockRoomStore) SetCurrentAgreement(ctx context.Context, id int64, agreementID *int64) error {
	if m.setCurrentAgreementFn != nil {
		return m.setCurrentAgreementFn(ctx, id, agreementID)
	}
	return nil
}

func (m *mockRoomStore) UpdateStatus(ctx context.Context, id int64, status model.RoomStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

type mockCounterOfferStore struct {
	getByIDFn               func(ctx context.Context, id int64) (*model.CounterOffer, error)
	getForUpdateFn          func(ctx context.Context, id int64) (*model.CounterOffer, error)
	createFn                func(ctx context.Context, offer *model.CounterOffer) error
	listPendingByRoomFn     func(ctx context.Context, roomID int64) ([]model.CounterOffer, error)
	supersedePendingByRoomFn func(ctx context.Context, roomID int64, exceptID int64, supersededBy *int64) error
	markRespondedFn         func(ctx context.Context, id int64, status model.CounterOfferStatus, responder model.Role, at time.Time) error
	markSupersededFn        func(ctx context.Context, id int64, supersededBy int64) error
}

func (m *mockCounterOfferStore) GetByID(ctx context.Context, id int64) (*model.CounterOffer, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCounterOfferStore) GetForUpdate(ctx context.Context, id int64) (*model.CounterOffer, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCounterOfferStore) Create(ctx context.Context, offer *model.CounterOffer) error {
	if m.createFn != nil {
		return m.createFn(ctx, offer)
	}
	return nil
}

func (m *mockCounterOfferStore) ListPendingByRoom(ctx context.Context, roomID int64) ([]model.CounterOffer, error) {
	if m.listPendingByRoomFn != nil {
		return m.listPendingByRoomFn(ctx, roomID)
	}
	return nil, nil
}

func (m *mockCounterOfferStore) SupersedePendingByRoom(ctx context.Context, roomID int64, exceptID int64, supersededBy *int64) error {
	if m.supersedePendingByRoomFn != nil {
		return m.supersedePendingByRoomFn(ctx, roomID, exceptID, supersededBy)
	}
	return nil
}

func (m *mockCounterOfferStore) MarkResponded(ctx context.Context, id int64, status model.CounterOfferStatus, responder model.Role, at time.Time) error {
	if m.markRespondedFn != nil {
		return m.markRespondedFn(ctx, id, status, responder, at)
	}
	return nil
}

func (m *mockCounterOfferStore) MarkSuperseded(ctx context.Context, id int64, supersededBy int64) error {
	if m.markSupersededFn != nil {
		return m.markSupersededFn(ctx, id, supersededBy)
	}
	return nil
}

type mockAgreementStore struct {
	getByIDFn              func(ctx context.Context, id int64) (*model.Agreement, error)
	getForUpdateFn         func(ctx context.Context, id int64) (*model.Agreement, error)
	getByEnvelopeIDFn      func(ctx context.Context, envelopeID string) (*model.Agreement, error)
	createFn               func(ctx context.Context, agreement *model.Agreement) error
	setEnvelopeFn          func(ctx context.Context, params store.SetEnvelopeParams) error
	setEnvelopeStatusFn    func(ctx context.Context, id int64, envelopeStatus string) error
	updateStatusFn         func(ctx context.Context, id int64, status model.AgreementStatus) error
	setReviewEndsAtFn      func(ctx context.Context, id int64, at time.Time) error
	markSignedFn           func(ctx context.Context, id int64, role model.Role, at time.Time) (bool, error)
	setSignedDocumentURLFn func(ctx context.Context, id int64, url string) (bool, error)
	setAgentSignerFn       func(ctx context.Context, id int64, agentProfileID int64, clientUserID string) error
	listReconcilableFn     func(ctx context.Context, limit int32) ([]model.Agreement, error)
}

func (m *mockAgreementStore) GetByID(ctx context.Context, id int64) (*model.Agreement, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockAgreementStore) GetForUpdate(ctx context.Context, id int64) (*model.Agreement, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockAgreementStore) GetByEnvelopeID(ctx context.Context, envelopeID string) (*model.Agreement, error) {
	if m.getByEnvelopeIDFn != nil {
		return m.getByEnvelopeIDFn(ctx, envelopeID)
	}
	return nil, store.ErrNotFound
}

func (m *mockAgreementStore) Create(ctx context.Context, agreement *model.Agreement) error {
	if m.createFn != nil {
		return m.createFn(ctx, agreement)
	}
	return nil
}

func (m *mockAgreementStore) SetEnvelope(ctx context.Context, params store.SetEnvelopeParams) error {
	if m.setEnvelopeFn != nil {
		return m.setEnvelopeFn(ctx, params)
	}
	return nil
}

func (m *mockAgreementStore) SetEnvelopeStatus(ctx context.Context, id int64, envelopeStatus string) error {
	if m.setEnvelopeStatusFn != nil {
		return m.setEnvelopeStatusFn(ctx, id, envelopeStatus)
	}
	return nil
}

func (m *mockAgreementStore) UpdateStatus(ctx context.Context, id int64, status model.AgreementStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockAgreementStore) SetReviewEndsAt(ctx context.Context, id int64, at time.Time) error {
	if m.setReviewEndsAtFn != nil {
		return m.setReviewEndsAtFn(ctx, id, at)
	}
	return nil
}

func (m *mockAgreementStore) MarkSigned(ctx context.Context, id int64, role model.Role, at time.Time) (bool, error) {
	if m.markSignedFn != nil {
		return m.markSignedFn(ctx, id, role, at)
	}
	return true, nil
}

func (m *mockAgreementStore) SetSignedDocumentURL(ctx context.Context, id int64, url string) (bool, error) {
	if m.setSignedDocumentURLFn != nil {
		return m.setSignedDocumentURLFn(ctx, id, url)
	}
	return true, nil
}

func (m *mockAgreementStore) SetAgentSigner(ctx context.Context, id int64, agentProfileID int64, clientUserID string) error {
	if m.setAgentSignerFn != nil {
		return m.setAgentSignerFn(ctx, id, agentProfileID, clientUserID)
	}
	return nil
}

func (m *mockAgreementStore) ListReconcilable(ctx context.Context, limit int32) ([]model.Agreement, error) {
	if m.listReconcilableFn != nil {
		return m.listReconcilableFn(ctx, limit)
	}
	return nil, nil
}

type mockConnectionStore struct {
	getActiveFn    func(ctx context.Context) (*model.ProviderConnection, error)
	createFn       func(ctx context.Context, conn *model.ProviderConnection) error
	updateTokensFn func(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
}

func (m *mockConnectionStore) GetActive(ctx context.Context) (*model.ProviderConnection, error) {
	if m.getActiveFn != nil {
		return m.getActiveFn(ctx)
	}
	return nil, store.ErrNotFound
}

func (m *mockConnectionStore) Create(ctx context.Context, conn *model.ProviderConnection) error {
	if m.createFn != nil {
		return m.createFn(ctx, conn)
	}
	return nil
}

func (m *mockConnectionStore) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	if m.updateTokensFn != nil {
		return m.updateTokensFn(ctx, id, accessToken, refreshToken, expiresAt)
	}
	return nil
}

type mockSigningTokenStore struct {
	createFn        func(ctx context.Context, token *model.SigningToken) error
	getFn           func(ctx context.Context, token string) (*model.SigningToken, error)
	consumeFn       func(ctx context.Context, token string, redirectURL string, at time.Time) (bool, error)
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSigningTokenStore) Create(ctx context.Context, token *model.SigningToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockSigningTokenStore) Get(ctx context.Context, token string) (*model.SigningToken, error) {
	if m.getFn != nil {
		return m.getFn(ctx, token)
	}
	return nil, store.ErrNotFound
}

func (m *mockSigningTokenStore) Consume(ctx context.Context, token string, redirectURL string, at time.Time) (bool, error) {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, token, redirectURL, at)
	}
	return true, nil
}

func (m *mockSigningTokenStore) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

type mockAuditLogStore struct {
	appendFn func(ctx context.Context, entry *model.AuditEntry) error
	entries  []model.AuditEntry
}

func (m *mockAuditLogStore) Append(ctx context.Context, entry *model.AuditEntry) error {
	m.entries = append(m.entries, *entry)
	if m.appendFn != nil {
		return m.appendFn(ctx, entry)
	}
	return nil
}

func (m *mockAuditLogStore) ListByAgreement(ctx context.Context, agreementID int64, limit int32) ([]model.AuditEntry, error) {
	return m.entries, nil
}

func (m *mockAuditLogStore) ListByRoom(ctx context.Context, roomID int64, limit int32) ([]model.AuditEntry, error) {
	return m.entries, nil
}

func (m *mockAuditLogStore) actions() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type mockDealStore struct {
	getByIDFn        func(ctx context.Context, id int64) (*model.Deal, error)
	setFullySignedFn func(ctx context.Context, id int64, v bool) error
}

func (m *mockDealStore) GetByID(ctx context.Context, id int64) (*model.Deal, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockDealStore) SetFullySigned(ctx context.Context, id int64, v bool) error {
	if m.setFullySignedFn != nil {
		return m.setFullySignedFn(ctx, id, v)
	}
	return nil
}

type mockProfileStore struct {
	getByIDFn       func(ctx context.Context, id int64) (*model.Profile, error)
	getByAPITokenFn func(ctx context.Context, token string) (*model.Profile, error)
}

func (m *mockProfileStore) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockProfileStore) GetByAPIToken(ctx context.Context, token string) (*model.Profile, error) {
	if m.getByAPITokenFn != nil {
		return m.getByAPITokenFn(ctx, token)
	}
	return nil, store.ErrNotFound
}

// mockStoreProvider bundles every store mock; the mock tx runner hands it to
// service transactions directly.
type mockStoreProvider struct {
	rooms         *mockRoomStore
	counterOffers *mockCounterOfferStore
	agreements    *mockAgreementStore
	connections   *mockConnectionStore
	signingTokens *mockSigningTokenStore
	auditLog      *mockAuditLogStore
	deals         *mockDealStore
	profiles      *mockProfileStore
}

func newMockStoreProvider() *mockStoreProvider {
	return &mockStoreProvider{
		rooms:         &mockRoomStore{},
		counterOffers: &mockCounterOfferStore{},
		agreements:    &mockAgreementStore{},
		connections:   &mockConnectionStore{},
		signingTokens: &mockSigningTokenStore{},
		auditLog:      &mockAuditLogStore{},
		deals:         &mockDealStore{},
		profiles:      &mockProfileStore{},
	}
}

func (p *mockStoreProvider) Rooms() store.RoomStore                 { return p.rooms }
func (p *mockStoreProvider) CounterOffers() store.CounterOfferStore { return p.counterOffers }
func (p *mockStoreProvider) Agreements() store.AgreementStore       { return p.agreements }
func (p *mockStoreProvider) Connections() store.ConnectionStore     { return p.connections }
func (p *mockStoreProvider) SigningTokens() store.SigningTokenStore { return p.signingTokens }
func (p *mockStoreProvider) AuditLog() store.AuditLogStore          { return p.auditLog }
func (p *mockStoreProvider) Deals() store.DealStore                 { return p.deals }
func (p *mockStoreProvider) Profiles() store.ProfileStore           { return p.profiles }

type mockTxRunner struct {
	provider *mockStoreProvider
}

func (r *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	return fn(r.provider)
}

type mockProducer struct {
	events []queue.StatusEvent
	errFn  func(event queue.StatusEvent) error
}

func (p *mockProducer) Publish(ctx context.Context, event queue.StatusEvent) error {
	if p.errFn != nil {
		if err := p.errFn(event); err != nil {
			return err
		}
	}
	p.events = append(p.events, event)
	return nil
}

func (p *mockProducer) Close() error { return nil }

type mockRenderer struct {
	renderFn  func(ctx context.Context, req docgen.RenderRequest) ([]byte, error)
	archiveFn func(ctx context.Context, agreementID int64, pdf []byte) (string, error)
}

func (r *mockRenderer) RenderAgreement(ctx context.Context, req docgen.RenderRequest) ([]byte, error) {
	if r.renderFn != nil {
		return r.renderFn(ctx, req)
	}
	return []byte("%PDF-1.4"), nil
}

func (r *mockRenderer) ArchiveSigned(ctx context.Context, agreementID int64, pdf []byte) (string, error) {
	if r.archiveFn != nil {
		return r.archiveFn(ctx, agreementID, pdf)
	}
	return "https://docs.example.com/signed.pdf", nil
}

type mockProviderAPI struct {
	createEnvelopeFn      func(ctx context.Context, env esign.EnvelopeDefinition) (*esign.EnvelopeSummary, error)
	getEnvelopeFn         func(ctx context.Context, envelopeID string) (*esign.EnvelopeSummary, error)
	listRecipientsFn      func(ctx context.Context, envelopeID string) (*esign.RecipientsResponse, error)
	getCombinedDocumentFn func(ctx context.Context, envelopeID string) ([]byte, error)
	deleteRecipientFn     func(ctx context.Context, envelopeID, recipientID string) error
	addRecipientFn        func(ctx context.Context, envelopeID string, signer esign.Signer) error
	createViewFn          func(ctx context.Context, envelopeID string, view esign.RecipientViewRequest) (string, error)
	createEnvelopeCalls   int
}

func (m *mockProviderAPI) CreateEnvelope(ctx context.Context, env esign.EnvelopeDefinition) (*esign.EnvelopeSummary, error) {
	m.createEnvelopeCalls++
	if m.createEnvelopeFn != nil {
		return m.createEnvelopeFn(ctx, env)
	}
	return &esign.EnvelopeSummary{EnvelopeID: "env-1", Status: "sent"}, nil
}

func (m *mockProviderAPI) GetEnvelope(ctx context.Context, envelopeID string) (*esign.EnvelopeSummary, error) {
	if m.getEnvelopeFn != nil {
		return m.getEnvelopeFn(ctx, envelopeID)
	}
	return &esign.EnvelopeSummary{EnvelopeID: envelopeID, Status: "sent"}, nil
}

func (m *mockProviderAPI) ListRecipients(ctx context.Context, envelopeID string) (*esign.RecipientsResponse, error) {
	if m.listRecipientsFn != nil {
		return m.listRecipientsFn(ctx, envelopeID)
	}
	return &esign.RecipientsResponse{}, nil
}

func (m *mockProviderAPI) GetCombinedDocument(ctx context.Context, envelopeID string) ([]byte, error) {
	if m.getCombinedDocumentFn != nil {
		return m.getCombinedDocumentFn(ctx, envelopeID)
	}
	return []byte("%PDF-1.4 signed"), nil
}

func (m *mockProviderAPI) DeleteRecipient(ctx context.Context, envelopeID, recipientID string) error {
	if m.deleteRecipientFn != nil {
		return m.deleteRecipientFn(ctx, envelopeID, recipientID)
	}
	return nil
}

func (m *mockProviderAPI) AddRecipient(ctx context.Context, envelopeID string, signer esign.Signer) error {
	if m.addRecipientFn != nil {
		return m.addRecipientFn(ctx, envelopeID, signer)
	}
	return nil
}

func (m *mockProviderAPI) CreateRecipientView(ctx context.Context, envelopeID string, view esign.RecipientViewRequest) (string, error) {
	if m.createViewFn != nil {
		return m.createViewFn(ctx, envelopeID, view)
	}
	return "https://sign.example.com/session", nil
}

type mockReconciler struct {
	reconcileFn    func(ctx context.Context, agreementID int64) (*model.Agreement, error)
	reconcileCalls int
}

func (m *mockReconciler) ReconcileAgreement(ctx context.Context, agreementID int64) (*model.Agreement, error) {
	m.reconcileCalls++
	if m.reconcileFn != nil {
		return m.reconcileFn(ctx, agreementID)
	}
	return nil, service.NewNotFound("agreement not found")
}
