// Package backup serializes the library document for export and
// restores previously exported documents. Import overwrites the
// persisted document wholesale; the consistency layers repair whatever
// arrives on the next load.
package backup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/polyplayapp/polyplay/internal/metastore"
)

// Export writes the normalized library document as indented JSON.
func Export(meta *metastore.Store, w io.Writer) error {
	lib, err := meta.LoadLibrary()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write library export: %w", err)
	}
	return nil
}

// Import replaces the persisted library document with the reader's
// contents. The payload is not validated here: the load path's
// normalizer repairs malformed input field by field, so importing a
// damaged export degrades to an empty library rather than failing.
func Import(meta *metastore.Store, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read library import: %w", err)
	}
	if err := meta.PutDocument(data); err != nil {
		return err
	}

	// Round-trip through the normalizer so the stored document is back
	// in normal form immediately.
	lib, err := meta.LoadLibrary()
	if err != nil {
		return err
	}
	_, err = meta.SaveLibrary(lib)
	return err
}
