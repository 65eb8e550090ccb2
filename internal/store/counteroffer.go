package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type counterOfferStore struct {
	q db.Querier
}

func newCounterOfferStore(q db.Querier) CounterOfferStore {
	return &counterOfferStore{q: q}
}

const counterColumns = `id, room_id, from_role, to_role, status, terms_delta, original_terms_snapshot, superseded_by, responded_by, created_at, responded_at`

func (s *counterOfferStore) GetByID(ctx context.Context, id int64) (*model.CounterOffer, error) {
	row := s.q.QueryRow(ctx, `SELECT `+counterColumns+` FROM counter_offers WHERE id = $1`, id)
	return scanCounterOffer(row)
}

func (s *counterOfferStore) GetForUpdate(ctx context.Context, id int64) (*model.CounterOffer, error) {
	row := s.q.QueryRow(ctx, `SELECT `+counterColumns+` FROM counter_offers WHERE id = $1 FOR UPDATE`, id)
	return scanCounterOffer(row)
}

func (s *counterOfferStore) Create(ctx context.Context, offer *model.CounterOffer) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO counter_offers (id, room_id, from_role, to_role, status, terms_delta, original_terms_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+counterColumns,
		offer.ID, offer.RoomID, offer.FromRole, offer.ToRole, offer.Status, offer.TermsDelta, offer.OriginalTermsSnapshot,
	)
	created, err := scanCounterOffer(row)
	if err != nil {
		return err
	}
	*offer = *created
	return nil
}

func (s *counterOfferStore) ListPendingByRoom(ctx context.Context, roomID int64) ([]model.CounterOffer, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+counterColumns+` FROM counter_offers
		WHERE room_id = $1 AND status = $2
		ORDER BY created_at`,
		roomID, model.CounterOfferStatusPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []model.CounterOffer
	for rows.Next() {
		offer, err := scanCounterOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

func (s *counterOfferStore) SupersedePendingByRoom(ctx context.Context, roomID int64, exceptID int64, supersededBy *int64) error {
	_, err := s.q.Exec(ctx, `
		UPDATE counter_offers
		SET status = $3, superseded_by = $4
		WHERE room_id = $1 AND id <> $2 AND status = $5`,
		roomID, exceptID, model.CounterOfferStatusSuperseded, supersededBy, model.CounterOfferStatusPending,
	)
	return err
}

func (s *counterOfferStore) MarkResponded(ctx context.Context, id int64, status model.CounterOfferStatus, responder model.Role, at time.Time) error {
	_, err := s.q.Exec(ctx, `
		UPDATE counter_offers
		SET status = $2, responded_by = $3, responded_at = $4
		WHERE id = $1 AND status = $5`,
		id, status, responder, at, model.CounterOfferStatusPending,
	)
	return err
}

func (s *counterOfferStore) MarkSuperseded(ctx context.Context, id int64, supersededBy int64) error {
	_, err := s.q.Exec(ctx, `
		UPDATE counter_offers
		SET status = $2, superseded_by = $3
		WHERE id = $1 AND status = $4`,
		id, model.CounterOfferStatusSuperseded, supersededBy, model.CounterOfferStatusPending,
	)
	return err
}

func scanCounterOffer(row pgx.Row) (*model.CounterOffer, error) {
	var c model.CounterOffer
	err := row.Scan(
		&c.ID, &c.RoomID, &c.FromRole, &c.ToRole, &c.Status, &c.TermsDelta,
		&c.OriginalTermsSnapshot, &c.SupersededBy, &c.RespondedBy, &c.CreatedAt, &c.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
