package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStatus(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		total   int
		advance int
		want    string
	}{
		{"no total", "Connecting to databases", 0, 0, "Connecting to databases..."},
		{"nothing done", "Rendering frames", 12, 0, "Rendering frames 0/12"},
		{"part done", "Rendering frames", 12, 3, "Rendering frames 3/12"},
		{"all done", "Connecting to databases", 2, 2, "Connecting to databases 2/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSpinner(context.Background(), &bytes.Buffer{}, tt.label, tt.total)
			for range tt.advance {
				s.Advance()
			}
			if got := s.status(); got != tt.want {
				t.Errorf("status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpinnerDrawsProgress(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Rendering frames", 5)
	s.Advance()
	s.Advance()
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering frames 2/5") {
		t.Errorf("output = %q, want progress 2/5", out)
	}
	// The line is blanked on stop.
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output = %q, want cleared line", out)
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after a plain Stop")
	}
}

func TestSpinnerAdvanceFromWorker(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Connecting to databases", 3)
	s.Start()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 3 {
			s.Advance()
		}
	}()
	<-done
	s.Stop()

	if s.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", s.Steps())
	}
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, &bytes.Buffer{}, "Rendering frames", 4)
	s.Start()
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() = false after the context was cancelled")
	}
}

func TestSpinnerStop(t *testing.T) {
	t.Run("without start", func(t *testing.T) {
		var buf bytes.Buffer
		s := newSpinner(context.Background(), &buf, "Rendering frames", 1)
		s.Stop()
		if buf.Len() != 0 {
			t.Errorf("output = %q, want nothing", buf.String())
		}
	})

	t.Run("twice", func(t *testing.T) {
		s := newSpinner(context.Background(), &bytes.Buffer{}, "Rendering frames", 1)
		s.Start()
		s.Stop()
		s.Stop()
	})

	t.Run("fail", func(t *testing.T) {
		s := newSpinner(context.Background(), &bytes.Buffer{}, "Connecting to databases", 2)
		s.Start()
		s.Advance()
		s.Fail("Database connect failed")
		if s.Steps() != 1 {
			t.Errorf("Steps() = %d, want 1", s.Steps())
		}
	})
}
