package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePersister keeps the snapshot in a single JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister for the snapshot file at path.
// The path is provided by the caller and is intentionally user-controlled.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the snapshot file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the snapshot. A missing or empty file is an empty snapshot.
func (p *FilePersister) Load(ctx context.Context) ([]Entry, error) {
	data, err := os.ReadFile(p.path) // #nosec G304 - path is intentionally user-provided
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	entries, err := UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.path, err)
	}
	return entries, nil
}

// Save writes the snapshot to a temporary file next to the target and
// renames it into place, so readers never see a partial snapshot.
func (p *FilePersister) Save(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := MarshalSnapshot(entries)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - cache directory is shared with the host
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Verify FilePersister implements Persister
var _ Persister = (*FilePersister)(nil)
