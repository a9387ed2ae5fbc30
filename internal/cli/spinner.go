package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a step counter such as "Rendering frames 3/12" while a
// slow step runs: database connects, catalog warm-up, SVG rendering.
// Advance may be called from the goroutine doing the work.
type Spinner struct {
	w     io.Writer
	label string
	total int
	steps atomic.Int64

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	started bool
	once    sync.Once

	mu      sync.Mutex
	lastLen int // width of the last drawn line
}

// newSpinner creates a spinner that counts up to total steps. A total of
// zero shows the label alone. The spinner stops drawing when ctx is done.
func newSpinner(parent context.Context, w io.Writer, label string, total int) *Spinner {
	ctx, cancel := context.WithCancel(parent)
	return &Spinner{
		w:       w,
		label:   label,
		total:   total,
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Advance marks one more step as done.
func (s *Spinner) Advance() { s.steps.Add(1) }

// Steps returns the number of finished steps.
func (s *Spinner) Steps() int { return int(s.steps.Load()) }

// status is the text drawn next to the spinner glyph.
func (s *Spinner) status() string {
	if s.total <= 0 {
		return s.label + "..."
	}
	return s.label + " " + strconv.Itoa(s.Steps()) + "/" + strconv.Itoa(s.total)
}

// Start draws the spinner every 80ms until Stop or cancellation.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *Spinner) draw(glyph string) {
	status := s.status()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(status))
	s.lastLen = len([]rune(glyph)) + 1 + len([]rune(status))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastLen > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.lastLen))
		s.lastLen = 0
	}
}

// Stop stops drawing and clears the line. It may be called more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
		s.clearLine()
	})
}

// Succeed stops the spinner and prints msg as a success line.
func (s *Spinner) Succeed(msg string) {
	s.Stop()
	printSuccess("%s", msg)
}

// Fail stops the spinner and prints msg with the steps reached.
func (s *Spinner) Fail(msg string) {
	s.Stop()
	if s.total > 0 {
		printError("%s after %d/%d", msg, s.Steps(), s.total)
		return
	}
	printError("%s", msg)
}

// Cancelled reports whether the context given to newSpinner is done.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
