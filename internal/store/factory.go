package store

import (
	"parlay.app/coordinator/core/db"
)

// Stores provides typed store accessors bound to a querier. Bind to the
// pooled querier for standalone reads, or to a transaction's querier via
// the TxRunner for serialized mutations.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Rooms() RoomStore {
	return newRoomStore(s.q)
}

func (s *Stores) CounterOffers() CounterOfferStore {
	return newCounterOfferStore(s.q)
}

func (s *Stores) Agreements() AgreementStore {
	return newAgreementStore(s.q)
}

func (s *Stores) Connections() ConnectionStore {
	return newConnectionStore(s.q)
}

func (s *Stores) SigningTokens() SigningTokenStore {
	return newSigningTokenStore(s.q)
}

func (s *Stores) AuditLog() AuditLogStore {
	return newAuditLogStore(s.q)
}

func (s *Stores) Deals() DealStore {
	return newDealStore(s.q)
}

func (s *Stores) Profiles() ProfileStore {
	return newProfileStore(s.q)
}
