package templates

import (
	"strings"
)

// ReportData is the input of the markdown report.
type ReportData struct {
	Title     string
	Generated string
	Sections  []Section
}

// Section is one table of results with optional notes above it.
type Section struct {
	Title  string
	Notes  []string
	Header []string
	Rows   [][]string
}

// tableRow renders cells as one markdown table row.
func tableRow(cells []string) string {
	var sb strings.Builder
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(strings.ReplaceAll(c, "|", `\|`))
		sb.WriteString(" |")
	}
	return sb.String()
}

// tableRule renders the header separator for count columns.
func tableRule(count int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i := 0; i < count; i++ {
		sb.WriteString(" --- |")
	}
	return sb.String()
}
