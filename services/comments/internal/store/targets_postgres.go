package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/comment-platform/services/comments/internal/target"
)

// Content visibility levels, mirroring the content tables.
const (
	VisibilityPrivate int16 = 0
	VisibilityPublic  int16 = 1
)

// PostgresContentSource loads one commentable content kind from its
// table. The table name comes from wiring code, never from clients.
type PostgresContentSource struct {
	pool     *pgxpool.Pool
	typeName string
	table    string
}

func NewPostgresContentSource(pool *pgxpool.Pool, typeName, table string) *PostgresContentSource {
	return &PostgresContentSource{pool: pool, typeName: typeName, table: table}
}

func (s *PostgresContentSource) Load(ctx context.Context, id int64) (target.Target, error) {
	q := `SELECT id, space_id, visibility, created_by FROM ` + s.table + ` WHERE id = $1`
	t := contentTarget{typeName: s.typeName}
	err := s.pool.QueryRow(ctx, q, id).Scan(&t.id, &t.spaceID, &t.visibility, &t.createdBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, target.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresContentSource) Touch(ctx context.Context, id int64) error {
	q := `UPDATE ` + s.table + ` SET updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id)
	return err
}

// contentTarget is the read-only view handed to the comment workflow.
type contentTarget struct {
	typeName   string
	id         int64
	spaceID    *int64
	visibility int16
	createdBy  int64
}

func (t *contentTarget) TypeName() string { return t.typeName }
func (t *contentTarget) ID() int64        { return t.id }

func (t *contentTarget) CanRead(userID int64) bool {
	if t.visibility == VisibilityPublic {
		return true
	}
	return userID != 0 && userID == t.createdBy
}

func (t *contentTarget) SpaceID() (int64, bool) {
	if t.spaceID == nil {
		return 0, false
	}
	return *t.spaceID, true
}
