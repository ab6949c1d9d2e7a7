package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSpaceStore reads space memberships from Postgres.
type PostgresSpaceStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSpaceStore(pool *pgxpool.Pool) *PostgresSpaceStore {
	return &PostgresSpaceStore{pool: pool}
}

func (s *PostgresSpaceStore) HasElevatedRole(ctx context.Context, userID, spaceID int64) (bool, error) {
	const q = `SELECT EXISTS(
	               SELECT 1 FROM space_memberships
	               WHERE space_id = $1 AND user_id = $2 AND role IN ('admin', 'moderator')
	           )`
	var elevated bool
	err := s.pool.QueryRow(ctx, q, spaceID, userID).Scan(&elevated)
	return elevated, err
}

func (s *PostgresSpaceStore) TouchLastVisit(ctx context.Context, spaceID, userID int64) error {
	const q = `UPDATE space_memberships SET last_visit = now()
	           WHERE space_id = $1 AND user_id = $2`
	_, err := s.pool.Exec(ctx, q, spaceID, userID)
	return err
}
