package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type connectionStore struct {
	q db.Querier
}

func newConnectionStore(q db.Querier) ConnectionStore {
	return &connectionStore{q: q}
}

const connectionColumns = `id, access_token, refresh_token, expires_at, account_id, base_uri, created_at, updated_at`

func (s *connectionStore) GetActive(ctx context.Context) (*model.ProviderConnection, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM provider_connections
		ORDER BY updated_at DESC
		LIMIT 1`)
	return scanConnection(row)
}

func (s *connectionStore) Create(ctx context.Context, conn *model.ProviderConnection) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO provider_connections (id, access_token, refresh_token, expires_at, account_id, base_uri)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+connectionColumns,
		conn.ID, conn.AccessToken, conn.RefreshToken, conn.ExpiresAt, conn.AccountID, conn.BaseURI,
	)
	created, err := scanConnection(row)
	if err != nil {
		return err
	}
	*conn = *created
	return nil
}

func (s *connectionStore) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	_, err := s.q.Exec(ctx, `
		UPDATE provider_connections
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = now()
		WHERE id = $1`,
		id, accessToken, refreshToken, expiresAt,
	)
	return err
}

func scanConnection(row pgx.Row) (*model.ProviderConnection, error) {
	var c model.ProviderConnection
	err := row.Scan(&c.ID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.AccountID, &c.BaseURI, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
