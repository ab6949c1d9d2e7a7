package store

import "context"

// FileStore claims upload records that were precreated before the
// comment itself existed. Attachment storage is handled elsewhere; the
// comment flow only binds pending rows to the new comment, best-effort.
type FileStore interface {
	// AttachPending binds the files named by the client-held token to
	// the comment. An empty token is a no-op.
	AttachPending(ctx context.Context, commentID int64, fileListToken string) error
}
