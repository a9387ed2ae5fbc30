package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// ObjectTable renders the per-object report as a bordered table.
func ObjectTable(rows []ObjectRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Object, strconv.Itoa(r.Requests), strconv.FormatInt(r.WaitNanos, 10)}
	}
	return newTable(data, "Lock Name", "Requests", "Total Lock Request Time (ns)")
}

// ModeTable renders the per-mode report as a bordered table.
func ModeTable(rows []ModeRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Mode, strconv.Itoa(r.Requests)}
	}
	return newTable(data, "Lock Type", "Number of requested locks")
}

func newTable(rows [][]string, headers ...string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col > 0 {
				return numberStyle
			}
			return cellStyle
		}).
		String()
}

// Write prints both reports under a heading, the way the tracer prints them
// when a session ends.
func Write(w io.Writer, r Report) error {
	_, err := fmt.Fprintf(w, "\nLock statistics:\n================\n\nLocks per OID\n%s\n\nLock types\n%s\n",
		ObjectTable(r.Objects), ModeTable(r.Modes))
	return err
}
