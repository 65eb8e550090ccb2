package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type signingTokenStore struct {
	q db.Querier
}

func newSigningTokenStore(q db.Querier) SigningTokenStore {
	return &signingTokenStore{q: q}
}

const signingTokenColumns = `token, agreement_id, role, return_url, used, redirect_url, expires_at, created_at, consumed_at`

func (s *signingTokenStore) Create(ctx context.Context, token *model.SigningToken) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO signing_tokens (token, agreement_id, role, return_url, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+signingTokenColumns,
		token.Token, token.AgreementID, token.Role, token.ReturnURL, token.ExpiresAt,
	)
	created, err := scanSigningToken(row)
	if err != nil {
		return err
	}
	*token = *created
	return nil
}

func (s *signingTokenStore) Get(ctx context.Context, token string) (*model.SigningToken, error) {
	row := s.q.QueryRow(ctx, `SELECT `+signingTokenColumns+` FROM signing_tokens WHERE token = $1`, token)
	return scanSigningToken(row)
}

func (s *signingTokenStore) Consume(ctx context.Context, token string, redirectURL string, at time.Time) (bool, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE signing_tokens
		SET used = TRUE, redirect_url = $2, consumed_at = $3
		WHERE token = $1 AND used = FALSE`,
		token, redirectURL, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *signingTokenStore) DeleteExpired(ctx context.Context) error {
	_, err := s.q.Exec(ctx, `DELETE FROM signing_tokens WHERE expires_at < now() - INTERVAL '7 days'`)
	return err
}

func scanSigningToken(row pgx.Row) (*model.SigningToken, error) {
	var t model.SigningToken
	err := row.Scan(&t.Token, &t.AgreementID, &t.Role, &t.ReturnURL, &t.Used, &t.RedirectURL, &t.ExpiresAt, &t.CreatedAt, &t.ConsumedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
