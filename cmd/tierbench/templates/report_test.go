package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// should render sections as markdown tables
func TestMarkdown(t *testing.T) {
	out := Markdown(&ReportData{
		Title:     "tierbench tiers",
		Generated: "now",
		Sections: []Section{{
			Title:  "Tiers",
			Notes:  []string{"200 writes"},
			Header: []string{"tier", "runs"},
			Rows:   [][]string{{"idle", "1,200"}, {"a|b", "3"}},
		}},
	})

	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "# tierbench tiers"))
	assert.Contains(t, out, "## Tiers")
	assert.Contains(t, out, "- 200 writes")
	assert.Contains(t, out, "| tier | runs |\n| --- | --- |\n| idle | 1,200 |\n")
	assert.Contains(t, out, `| a\|b | 3 |`)
}
