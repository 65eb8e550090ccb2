package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type agreementStore struct {
	q db.Querier
}

func newAgreementStore(q db.Querier) AgreementStore {
	return &agreementStore{q: q}
}

const agreementColumns = `id, deal_id, room_id, envelope_id, envelope_status, status, signer_mode,
	agent_profile_id, investor_signed_at, agent_signed_at,
	investor_recipient_id, agent_recipient_id, investor_client_user_id, agent_client_user_id,
	signed_document_url, review_ends_at, created_at, updated_at`

func (s *agreementStore) GetByID(ctx context.Context, id int64) (*model.Agreement, error) {
	row := s.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id)
	return scanAgreement(row)
}

func (s *agreementStore) GetForUpdate(ctx context.Context, id int64) (*model.Agreement, error) {
	row := s.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1 FOR UPDATE`, id)
	return scanAgreement(row)
}

func (s *agreementStore) GetByEnvelopeID(ctx context.Context, envelopeID string) (*model.Agreement, error) {
	row := s.q.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE envelope_id = $1`, envelopeID)
	return scanAgreement(row)
}

func (s *agreementStore) Create(ctx context.Context, agreement *model.Agreement) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO agreements (id, deal_id, room_id, status, signer_mode, agent_profile_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+agreementColumns,
		agreement.ID, agreement.DealID, agreement.RoomID, agreement.Status, agreement.SignerMode, agreement.AgentProfileID,
	)
	created, err := scanAgreement(row)
	if err != nil {
		return err
	}
	*agreement = *created
	return nil
}

func (s *agreementStore) SetEnvelope(ctx context.Context, params SetEnvelopeParams) error {
	_, err := s.q.Exec(ctx, `
		UPDATE agreements
		SET envelope_id = $2, envelope_status = $3, status = $4,
		    investor_recipient_id = $5, agent_recipient_id = $6,
		    investor_client_user_id = $7, agent_client_user_id = $8,
		    updated_at = now()
		WHERE id = $1`,
		params.AgreementID, params.EnvelopeID, params.EnvelopeStatus, model.AgreementStatusSent,
		params.InvestorRecipientID, params.AgentRecipientID,
		params.InvestorClientUserID, params.AgentClientUserID,
	)
	return err
}

func (s *agreementStore) SetEnvelopeStatus(ctx context.Context, id int64, envelopeStatus string) error {
	_, err := s.q.Exec(ctx, `UPDATE agreements SET envelope_status = $2, updated_at = now() WHERE id = $1`, id, envelopeStatus)
	return err
}

func (s *agreementStore) UpdateStatus(ctx context.Context, id int64, status model.AgreementStatus) error {
	// Terminal statuses are never mutated back to an active one.
	_, err := s.q.Exec(ctx, `
		UPDATE agreements SET status = $2, updated_at = now()
		WHERE id = $1 AND status NOT IN ($3, $4)`,
		id, status, model.AgreementStatusSuperseded, model.AgreementStatusVoided,
	)
	return err
}

func (s *agreementStore) SetReviewEndsAt(ctx context.Context, id int64, at time.Time) error {
	_, err := s.q.Exec(ctx, `
		UPDATE agreements SET review_ends_at = $2, updated_at = now()
		WHERE id = $1 AND review_ends_at IS NULL`,
		id, at,
	)
	return err
}

func (s *agreementStore) MarkSigned(ctx context.Context, id int64, role model.Role, at time.Time) (bool, error) {
	column := "investor_signed_at"
	if role == model.RoleAgent {
		column = "agent_signed_at"
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE agreements SET `+column+` = $2, updated_at = now()
		WHERE id = $1 AND `+column+` IS NULL`,
		id, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *agreementStore) SetSignedDocumentURL(ctx context.Context, id int64, url string) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE agreements SET signed_document_url = $2, updated_at = now()
		WHERE id = $1 AND signed_document_url IS NULL`,
		id, url,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *agreementStore) SetAgentSigner(ctx context.Context, id int64, agentProfileID int64, clientUserID string) error {
	_, err := s.q.Exec(ctx, `
		UPDATE agreements SET agent_profile_id = $2, agent_client_user_id = $3, updated_at = now()
		WHERE id = $1`,
		id, agentProfileID, clientUserID,
	)
	return err
}

func (s *agreementStore) ListReconcilable(ctx context.Context, limit int32) ([]model.Agreement, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+agreementColumns+` FROM agreements
		WHERE envelope_id IS NOT NULL AND status NOT IN ($1, $2, $3)
		ORDER BY id
		LIMIT $4`,
		model.AgreementStatusFullySigned, model.AgreementStatusSuperseded, model.AgreementStatusVoided, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agreements []model.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		agreements = append(agreements, *a)
	}
	return agreements, rows.Err()
}

func scanAgreement(row pgx.Row) (*model.Agreement, error) {
	var a model.Agreement
	err := row.Scan(
		&a.ID, &a.DealID, &a.RoomID, &a.EnvelopeID, &a.EnvelopeStatus, &a.Status, &a.SignerMode,
		&a.AgentProfileID, &a.InvestorSignedAt, &a.AgentSignedAt,
		&a.InvestorRecipientID, &a.AgentRecipientID, &a.InvestorClientUserID, &a.AgentClientUserID,
		&a.SignedDocumentURL, &a.ReviewEndsAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
