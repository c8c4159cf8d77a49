package engine

import (
	"context"
	"io"

	"github.com/polyplayapp/polyplay/internal/backup"
)

// Export writes the current normalized library document to w, running
// any pending legacy migration first so the export is complete.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.load(ctx); err != nil {
		return err
	}
	return backup.Export(e.meta, w)
}

// Import overwrites the library document from r, revoking every media
// handle since any previously referenced key may be gone. The imported
// state goes back through the full load path afterwards.
func (e *Engine) Import(ctx context.Context, r io.Reader) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := backup.Import(e.meta, r); err != nil {
		return err
	}
	e.media.RevokeAll()

	_, err := e.load(ctx)
	return err
}
