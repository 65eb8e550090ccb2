package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/model"
)

type profileStore struct {
	q db.Querier
}

func newProfileStore(q db.Querier) ProfileStore {
	return &profileStore{q: q}
}

const profileColumns = `id, role, name, email, placeholder, created_at`

func (s *profileStore) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	row := s.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *profileStore) GetByAPIToken(ctx context.Context, token string) (*model.Profile, error) {
	row := s.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE api_token = $1`, token)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Role, &p.Name, &p.Email, &p.Placeholder, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
