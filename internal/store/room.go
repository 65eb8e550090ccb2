package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type roomStore struct {
	q db.Querier
}

func newRoomStore(q db.Querier) RoomStore {
	return &roomStore{q: q}
}

const roomColumns = `id, deal_id, investor_id, agent_id, proposed_terms, requires_regenerate, current_agreement_id, status, created_at, updated_at`

func (s *roomStore) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	row := s.q.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

func (s *roomStore) GetForUpdate(ctx context.Context, id int64) (*model.Room, error) {
	row := s.q.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
	return scanRoom(row)
}

func (s *roomStore) UpdateProposedTerms(ctx context.Context, id int64, terms model.Terms, requiresRegenerate bool) error {
	_, err := s.q.Exec(ctx, `
		UPDATE rooms SET proposed_terms = $2, requires_regenerate = $3, updated_at = now()
		WHERE id = $1`,
		id, terms, requiresRegenerate,
	)
	return err
}

func (s *roomStore) SetRequiresRegenerate(ctx context.Context, id int64, v bool) error {
	_, err := s.q.Exec(ctx, `UPDATE rooms SET requires_regenerate = $2, updated_at = now() WHERE id = $1`, id, v)
	return err
}

func (s *roomStore) SetCurrentAgreement(ctx context.Context, id int64, agreementID *int64) error {
	_, err := s.q.Exec(ctx, `UPDATE rooms SET current_agreement_id = $2, updated_at = now() WHERE id = $1`, id, agreementID)
	return err
}

func (s *roomStore) UpdateStatus(ctx context.Context, id int64, status model.RoomStatus) error {
	_, err := s.q.Exec(ctx, `UPDATE rooms SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}

func scanRoom(row pgx.Row) (*model.Room, error) {
	var r model.Room
	err := row.Scan(
		&r.ID, &r.DealID, &r.InvestorID, &r.AgentID, &r.ProposedTerms,
		&r.RequiresRegenerate, &r.CurrentAgreementID, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}
