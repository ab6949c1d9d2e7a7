package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists comments in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentColumns = `id, target_type, target_id, author_id, space_id, message, created_at, updated_at`

func (s *PostgresCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	if strings.TrimSpace(c.Message) == "" {
		return Comment{}, ErrEmptyMessage
	}
	const q = `INSERT INTO comments (target_type, target_id, author_id, space_id, message)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING ` + commentColumns
	row := s.pool.QueryRow(ctx, q, c.TargetType, c.TargetID, c.AuthorID, c.SpaceID, c.Message)
	return scanComment(row)
}

func (s *PostgresCommentStore) FindByID(ctx context.Context, id int64) (Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	c, err := scanComment(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresCommentStore) ListByTarget(ctx context.Context, targetType string, targetID int64, limit int, beforeID int64) ([]Comment, error) {
	if limit <= 0 {
		const q = `SELECT ` + commentColumns + ` FROM comments
		           WHERE target_type = $1 AND target_id = $2 AND ($3 = 0 OR id < $3)
		           ORDER BY id ASC`
		return s.scanComments(ctx, q, targetType, targetID, beforeID)
	}
	// Most recent window, presented oldest-first.
	const q = `SELECT ` + commentColumns + ` FROM (
	               SELECT ` + commentColumns + ` FROM comments
	               WHERE target_type = $1 AND target_id = $2 AND ($3 = 0 OR id < $3)
	               ORDER BY id DESC
	               LIMIT $4
	           ) recent ORDER BY id ASC`
	return s.scanComments(ctx, q, targetType, targetID, beforeID, limit)
}

func (s *PostgresCommentStore) ListSince(ctx context.Context, targetType string, targetID, afterID int64, limit int) ([]Comment, error) {
	const q = `SELECT ` + commentColumns + ` FROM comments
	           WHERE target_type = $1 AND target_id = $2 AND id > $3
	           ORDER BY id ASC
	           LIMIT $4`
	return s.scanComments(ctx, q, targetType, targetID, afterID, limit)
}

func (s *PostgresCommentStore) CountByTarget(ctx context.Context, targetType string, targetID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM comments WHERE target_type = $1 AND target_id = $2`
	var n int
	err := s.pool.QueryRow(ctx, q, targetType, targetID).Scan(&n)
	return n, err
}

func (s *PostgresCommentStore) UpdateMessage(ctx context.Context, id int64, message string) (Comment, error) {
	if strings.TrimSpace(message) == "" {
		return Comment{}, ErrEmptyMessage
	}
	const q = `UPDATE comments SET message = $1, updated_at = now()
	           WHERE id = $2
	           RETURNING ` + commentColumns
	c, err := scanComment(s.pool.QueryRow(ctx, q, message, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresCommentStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.TargetType, &c.TargetID, &c.AuthorID,
		&c.SpaceID, &c.Message, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
