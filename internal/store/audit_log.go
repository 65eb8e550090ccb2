package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type auditLogStore struct {
	q db.Querier
}

func newAuditLogStore(q db.Querier) AuditLogStore {
	return &auditLogStore{q: q}
}

const auditColumns = `id, agreement_id, room_id, actor, action, details, created_at`

func (s *auditLogStore) Append(ctx context.Context, entry *model.AuditEntry) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO agreement_audit_log (id, agreement_id, room_id, actor, action, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+auditColumns,
		entry.ID, entry.AgreementID, entry.RoomID, entry.Actor, entry.Action, entry.Details,
	)
	created, err := scanAuditEntry(row)
	if err != nil {
		return err
	}
	*entry = *created
	return nil
}

func (s *auditLogStore) ListByAgreement(ctx context.Context, agreementID int64, limit int32) ([]model.AuditEntry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+auditColumns+` FROM agreement_audit_log
		WHERE agreement_id = $1
		ORDER BY created_at, id
		LIMIT $2`,
		agreementID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func (s *auditLogStore) ListByRoom(ctx context.Context, roomID int64, limit int32) ([]model.AuditEntry, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+auditColumns+` FROM agreement_audit_log
		WHERE room_id = $1
		ORDER BY created_at, id
		LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows pgx.Rows) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanAuditEntry(row pgx.Row) (*model.AuditEntry, error) {
	var e model.AuditEntry
	err := row.Scan(&e.ID, &e.AgreementID, &e.RoomID, &e.Actor, &e.Action, &e.Details, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
