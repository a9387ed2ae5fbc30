// Package archive persists session summaries.
//
// A summary records what a tracing session saw: its id and source, how many
// events it processed, the final lock statistics, the number of graph
// frames and every orphan ungrant. [FileStore] writes one JSON file per
// session, [MongoStore] one document per session.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

// Store saves session summaries.
type Store interface {
	Save(ctx context.Context, s trace.Summary) error
	Close(ctx context.Context) error
}

// FileStore writes summaries as <dir>/<id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := errors.ValidateFilePath(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes s. A summary with the same id is overwritten.
func (f *FileStore) Save(_ context.Context, s trace.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(f.path(s.ID), data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Load reads the summary with the given id.
func (f *FileStore) Load(id string) (trace.Summary, error) {
	var s trace.Summary
	data, err := os.ReadFile(f.path(id))
	if os.IsNotExist(err) {
		return s, errors.New(errors.ErrCodeFileNotFound, "no archived session %s", id)
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode session %s", id)
	}
	return s, nil
}

// Close does nothing for file stores.
func (f *FileStore) Close(context.Context) error { return nil }

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

var _ Store = (*FileStore)(nil)
