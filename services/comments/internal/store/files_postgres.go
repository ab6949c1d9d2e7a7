package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFileStore binds precreated upload rows to comments.
type PostgresFileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresFileStore(pool *pgxpool.Pool) *PostgresFileStore {
	return &PostgresFileStore{pool: pool}
}

func (s *PostgresFileStore) AttachPending(ctx context.Context, commentID int64, fileListToken string) error {
	guids := splitFileList(fileListToken)
	if len(guids) == 0 {
		return nil
	}
	const q = `UPDATE files SET object_type = 'Comment', object_id = $1
	           WHERE guid = ANY($2) AND object_id IS NULL`
	_, err := s.pool.Exec(ctx, q, commentID, guids)
	return err
}

// splitFileList parses the comma-separated guid list uploads hand back
// to the client.
func splitFileList(token string) []string {
	var out []string
	for _, part := range strings.Split(token, ",") {
		if g := strings.TrimSpace(part); g != "" {
			out = append(out, g)
		}
	}
	return out
}
