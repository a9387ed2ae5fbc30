package event

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pglocktrace/pkg/errors"
)

// Source yields events in arrival order. Next returns io.EOF when the
// stream is exhausted. Implementations may block while waiting for the
// next event and must return ctx.Err() once ctx is done.
type Source interface {
	Next(ctx context.Context) (Event, error)
}

// Reader decodes a line-delimited JSON event log.
//
// Each non-blank line must be one JSON object as produced by the tracer's
// JSON output. Decoding errors are wrapped with the 1-based line number.
// Reader does not close the underlying reader.
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event, or io.EOF after the last line.
func (r *Reader) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := r.r.ReadBytes('\n')
		if len(data) == 0 && err != nil {
			return nil, err
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
		r.line++

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		ev, perr := Parse(data)
		if perr != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, perr)
		}
		return ev, nil
	}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int { return r.line }

// ReadAll decodes every event in r.
//
// ReadAll stops at the first malformed line and returns the error together
// with the events decoded before it.
func ReadAll(r io.Reader) ([]Event, error) {
	src := NewReader(r)
	ctx := context.Background()

	var events []Event
	for {
		ev, err := src.Next(ctx)
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// ImportFile reads the event log at path.
//
// ImportFile fails with FILE_NOT_FOUND when path does not exist and
// otherwise returns the same errors as [ReadAll], prefixed with the path.
func ImportFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "input file does not exist %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	events, err := ReadAll(f)
	if err != nil {
		return events, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// Slice is a Source over an in-memory list of events.
type Slice struct {
	events []Event
	pos    int
}

// FromSlice returns a Source yielding events in order.
func FromSlice(events ...Event) *Slice {
	return &Slice{events: events}
}

// Next returns the next event, or io.EOF when all events were returned.
func (s *Slice) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}
