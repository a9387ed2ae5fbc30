// Package label breaks long object names into lines for graph nodes.
//
// Relation names such as public.some_very_long_table_name_here make graph
// nodes wide enough to distort a circular layout. [Wrap] inserts line breaks
// at identifier boundaries so the node stays compact while every token of
// the name stays intact.
package label

import "strings"

// DefaultMaxRun is the number of characters after which a line may break.
const DefaultMaxRun = 20

// Wrap inserts a newline after a '.' or '_' once more than maxRun characters
// were written since the previous break. Breaks never fall inside an
// alphanumeric run, so a text of at most maxRun characters is never wrapped.
// A maxRun below zero is treated as zero.
func Wrap(text string, maxRun int) string {
	if maxRun < 0 {
		maxRun = 0
	}
	var b strings.Builder
	b.Grow(len(text) + 4)

	run := 0
	for _, r := range text {
		b.WriteRune(r)
		run++
		if run > maxRun && (r == '.' || r == '_') {
			b.WriteByte('\n')
			run = 0
		}
	}
	return b.String()
}
