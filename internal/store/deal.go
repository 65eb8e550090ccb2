package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type dealStore struct {
	q db.Querier
}

func newDealStore(q db.Querier) DealStore {
	return &dealStore{q: q}
}

func (s *dealStore) GetByID(ctx context.Context, id int64) (*model.Deal, error) {
	var d model.Deal
	err := s.q.QueryRow(ctx, `
		SELECT id, jurisdiction, fully_signed, created_at, updated_at
		FROM deals WHERE id = $1`, id,
	).Scan(&d.ID, &d.Jurisdiction, &d.FullySigned, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *dealStore) SetFullySigned(ctx context.Context, id int64, v bool) error {
	_, err := s.q.Exec(ctx, `UPDATE deals SET fully_signed = $2, updated_at = now() WHERE id = $1`, id, v)
	return err
}
