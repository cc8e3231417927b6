package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"trendscout/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB000"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

const previewChars = 160

func statusStyle(s types.StageStatus) lipgloss.Style {
	switch s {
	case types.StatusOK:
		return okStyle
	case types.StatusDegraded:
		return warnStyle
	default:
		return errorStyle
	}
}

// renderReport formats a report for the terminal
func renderReport(r *types.RunReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s: %s", r.RunID, r.State)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Query: " + r.Query.Text))
	b.WriteString("\n\n")

	switch r.State {
	case types.StateClarificationNeeded:
		b.WriteString(warnStyle.Render("Clarification needed: " + r.Clarification))
		b.WriteString("\n")
		if r.Suggestion != "" {
			b.WriteString(infoStyle.Render("Try: " + r.Suggestion))
			b.WriteString("\n")
		}
		return b.String()
	}

	var stages []string
	for _, s := range types.Stages {
		status, ok := r.StageStatuses[s]
		if !ok {
			continue
		}
		stages = append(stages, fmt.Sprintf("%-12s %s", s, statusStyle(status).Render(string(status))))
	}
	b.WriteString(boxStyle.Render(strings.Join(stages, "\n")))
	b.WriteString("\n")

	if r.Queries != nil {
		b.WriteString("\nKeyword queries:\n")
		for _, q := range r.Queries.KeywordQueries {
			b.WriteString("  " + q + "\n")
		}
		b.WriteString("Semantic queries:\n")
		for _, q := range r.Queries.SemanticQueries {
			b.WriteString("  " + q + "\n")
		}
	}

	if len(r.FinalDocuments) > 0 {
		b.WriteString("\nDocuments:\n")
		for _, d := range r.FinalDocuments {
			line := fmt.Sprintf("%d. %s [%s]", d.Rank, d.URL, d.ExtractionStatus)
			if d.ExtractionStatus == types.ExtractionFailed {
				b.WriteString(errorStyle.Render(line+" "+d.Error) + "\n")
				continue
			}
			b.WriteString(line + "\n")
			if d.Title != "" {
				b.WriteString("   " + d.Title + "\n")
			}
			b.WriteString(infoStyle.Render("   "+preview(d.ExtractedText)) + "\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			b.WriteString(warnStyle.Render("  - "+w) + "\n")
		}
	}
	return b.String()
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewChars {
		return text
	}
	return string(runes[:previewChars]) + "..."
}
