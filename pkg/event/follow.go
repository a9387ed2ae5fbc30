package event

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/pglocktrace/pkg/errors"
)

// Follower reads an event log that another process is still appending to,
// like tail -f. It returns complete lines as they become available and
// blocks on file system notifications in between.
//
// A Follower returns io.EOF only once the file is removed or renamed, and
// ctx.Err() once ctx is done. Truncation is not detected.
type Follower struct {
	f       *os.File
	r       *bufio.Reader
	watcher *fsnotify.Watcher
	partial []byte
	line    int
}

// Follow opens path for following. The caller must Close the Follower.
func Follow(path string) (*Follower, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "input file does not exist %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		f.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &Follower{f: f, r: bufio.NewReaderSize(f, 64*1024), watcher: w}, nil
}

// Next returns the next complete event line, waiting for writes as needed.
func (fl *Follower) Next(ctx context.Context) (Event, error) {
	for {
		chunk, err := fl.r.ReadBytes('\n')
		fl.partial = append(fl.partial, chunk...)

		if err == nil {
			data := bytes.TrimSpace(fl.partial)
			fl.partial = fl.partial[:0]
			fl.line++
			if len(data) == 0 {
				continue
			}
			ev, perr := Parse(data)
			if perr != nil {
				return nil, fmt.Errorf("line %d: %w", fl.line, perr)
			}
			return ev, nil
		}
		if err != io.EOF {
			return nil, err
		}

		if err := fl.wait(ctx); err != nil {
			return nil, err
		}
	}
}

// wait blocks until the file is written to or ctx is done.
func (fl *Follower) wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fl.watcher.Events:
			if !ok {
				return io.EOF
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return io.EOF
			}
		case err, ok := <-fl.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

// Close stops watching and closes the file.
func (fl *Follower) Close() error {
	werr := fl.watcher.Close()
	if err := fl.f.Close(); err != nil {
		return err
	}
	return werr
}
