package frame

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed animation.html.tmpl
var animationHTML string

var animationTmpl = template.Must(template.New("animation").Parse(animationHTML))

// Animation defaults.
const (
	DefaultDelay    = 500 * time.Millisecond
	DefaultDuration = 1500 * time.Millisecond
	DefaultEngine   = "circo"
	DefaultTitle    = "Lock graph"
)

// HTMLOptions configures the animation page.
type HTMLOptions struct {
	Title    string
	Delay    time.Duration // pause before each transition
	Duration time.Duration // length of each transition
	Engine   string        // Graphviz layout engine used in the browser
}

func (o *HTMLOptions) setDefaults() {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
}

// WriteHTML writes a self-contained page that cycles through frames with
// d3-graphviz. The page loads its scripts from public CDNs.
func WriteHTML(w io.Writer, frames []Frame, opts HTMLOptions) error {
	opts.setDefaults()
	data := struct {
		Title          string
		Frames         []string
		DelayMillis    int64
		DurationMillis int64
		Engine         string
	}{
		Title:          opts.Title,
		Frames:         DOTs(frames),
		DelayMillis:    opts.Delay.Milliseconds(),
		DurationMillis: opts.Duration.Milliseconds(),
		Engine:         opts.Engine,
	}
	if err := animationTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render animation: %w", err)
	}
	return nil
}
