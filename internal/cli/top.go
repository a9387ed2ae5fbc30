package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/stats"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

// topCommand creates the top command, a live dashboard over a followed log.
func (c *CLI) topCommand() *cobra.Command {
	var opts sourceOpts

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live dashboard of lock statistics",
		Long: `Follow an event log and show the most requested relations, the lock modes
in use, and the size of the current lock graph.

Press q to quit. The final statistics are printed on exit.`,
		Example: `  pglocktrace top -i events.jsonl -r 4711:postgres://localhost/app`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.follow = true
			return c.runTop(withLogger(cmd.Context(), c.Logger), opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func (c *CLI) runTop(ctx context.Context, opts sourceOpts) error {
	t, err := c.openTracer(ctx, opts, tracerConfig{
		output: io.Discard,
		graph:  true,
		maxRun: c.config.Animate.MaxRun,
	})
	if err != nil {
		return err
	}
	defer t.close(ctx)

	// The dashboard owns the terminal, so log lines would tear it.
	restore := c.silenceLogger()
	defer restore()

	final, err := tea.NewProgram(newTopModel(ctx, t.session, t.source, opts.input), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	if err := stats.Write(c.Stdout, t.session.Stats().Report()); err != nil {
		return err
	}
	t.printCounts()
	if m, ok := final.(TopModel); ok && m.Err != nil {
		return m.Err
	}
	return ctx.Err()
}

// =============================================================================
// TopModel - Live statistics dashboard
// =============================================================================

type (
	eventMsg  struct{ ev event.Event }
	sourceEOF struct{}
	sourceErr struct{ err error }
)

// TopModel is the bubbletea model of the top command. It processes one
// event per message, so the session is only touched from Update.
type TopModel struct {
	Session *trace.Session
	Source  event.Source
	Input   string
	Height  int
	Done    bool  // source exhausted
	Err     error // fatal processing error

	ctx context.Context
}

// newTopModel creates a dashboard pulling events from src into s.
func newTopModel(ctx context.Context, s *trace.Session, src event.Source, input string) TopModel {
	return TopModel{Session: s, Source: src, Input: input, Height: 10, ctx: ctx}
}

// next reads the next event off the source.
func (m TopModel) next() tea.Msg {
	ev, err := m.Source.Next(m.ctx)
	if err == io.EOF {
		return sourceEOF{}
	}
	if err != nil {
		return sourceErr{err}
	}
	return eventMsg{ev}
}

func (m TopModel) Init() tea.Cmd {
	return m.next
}

func (m TopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max((msg.Height-14)/2, 3)
	case eventMsg:
		if err := m.Session.Process(m.ctx, msg.ev); err != nil {
			m.Err = err
			return m, tea.Quit
		}
		return m, m.next
	case sourceEOF:
		m.Done = true
	case sourceErr:
		if m.ctx.Err() == nil {
			m.Err = msg.err
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m TopModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("pglocktrace top"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(m.Input))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.summaryLine())
	b.WriteString("\n\n")

	r := m.Session.Stats().Report()
	objects := r.Objects[:min(len(r.Objects), m.Height)]
	rows := make([][]string, len(objects))
	for i, o := range objects {
		rows[i] = []string{o.Object, strconv.Itoa(o.Requests), strconv.FormatInt(o.WaitNanos, 10)}
	}
	b.WriteString(dashboardTable(rows, "Relation", "Requests", "Wait (ns)"))
	b.WriteString("\n")

	modes := make([][]string, len(r.Modes))
	for i, md := range r.Modes {
		modes[i] = []string{md.Mode, strconv.Itoa(md.Requests)}
	}
	b.WriteString(dashboardTable(modes, "Lock Type", "Requests"))
	b.WriteString("\n")

	if m.Done {
		b.WriteString(listDimStyle.Render("  source closed"))
	} else if more := len(r.Objects) - len(objects); more > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  +%d more relations", more)))
	}
	return b.String()
}

func (m TopModel) summaryLine() string {
	s := m.Session
	parts := []string{
		StyleNumber.Render(strconv.Itoa(s.Processed())) + StyleDim.Render(" events"),
		StyleNumber.Render(strconv.Itoa(s.Skipped())) + StyleDim.Render(" filtered"),
	}
	if g := s.Graph(); g != nil {
		parts = append(parts,
			StyleNumber.Render(strconv.Itoa(len(g.Graph.Queries())))+StyleDim.Render(" queries"),
			StyleNumber.Render(strconv.Itoa(len(g.Graph.Objects())))+StyleDim.Render(" relations"),
			StyleNumber.Render(strconv.Itoa(g.Graph.EdgeCount()))+StyleDim.Render(" held"),
		)
		if n := len(g.Diagnostics()); n > 0 {
			parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d orphan ungrants", n)))
		}
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// Dashboard styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

func dashboardTable(rows [][]string, headers ...string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return StyleHeader
			}
			if col > 0 {
				return lipgloss.NewStyle().Foreground(colorWhite).Align(lipgloss.Right)
			}
			return lipgloss.NewStyle().Foreground(colorCyan)
		}).
		Render()
}
