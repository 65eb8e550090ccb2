package service

import (
	"context"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/store"
)

// StoreProvider exposes the stores a transactional operation may use, bound
// to the transaction's querier.
type StoreProvider interface {
	Rooms() store.RoomStore
	CounterOffers() store.CounterOfferStore
	Agreements() store.AgreementStore
	Connections() store.ConnectionStore
	SigningTokens() store.SigningTokenStore
	AuditLog() store.AuditLogStore
	Deals() store.DealStore
	Profiles() store.ProfileStore
}

// TxRunner runs functions within a transaction and provides stores bound to
// that transaction. Row locks taken inside fn serialize concurrent mutations
// of the same room or agreement.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q db.Querier) error {
		return fn(store.NewStores(q))
	})
}
