// Package observability renders human-readable CLI output in boxed sections.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// StatusIcon returns the glyph used for a stage status.
func StatusIcon(status pipeline.Status) string {
	switch status {
	case pipeline.StatusSuccess:
		return "✓"
	case pipeline.StatusFailed:
		return "✗"
	case pipeline.StatusPending:
		return "●"
	default:
		return "○"
	}
}

// PrintStages outputs the catalog grouped by category.
func (p *Printer) PrintStages(stages []types.Stage) {
	if len(stages) == 0 {
		return
	}

	var sb strings.Builder
	category := ""
	for _, stage := range stages {
		if stage.Category != category {
			if category != "" {
				sb.WriteString("\n")
			}
			category = stage.Category
			sb.WriteString(category + "\n")
		}
		fmt.Fprintf(&sb, "  %-18s %s\n", stage.ID, stage.Name)
	}

	p.printBox(fmt.Sprintf("PIPELINE STAGES (%d)", len(stages)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStage outputs the details of one stage.
func (p *Printer) PrintStage(stage *types.Stage) {
	if stage == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Category: %s\n", stage.Category)
	fmt.Fprintf(&sb, "Tools:    %s\n", strings.Join(stage.ToolsUsed, ", "))
	if stage.ExecutionTime > 0 {
		fmt.Fprintf(&sb, "Typical:  %ds\n", stage.ExecutionTime)
	}
	sb.WriteString("\n")
	sb.WriteString(stage.Description)
	sb.WriteString("\n")

	if len(stage.SampleCommands) > 0 {
		sb.WriteString("\nCommands:\n")
		for _, cmd := range stage.SampleCommands {
			fmt.Fprintf(&sb, "  $ %s\n", cmd)
		}
	}
	if stage.SecurityImpact != "" {
		fmt.Fprintf(&sb, "\nSecurity: %s\n", stage.SecurityImpact)
	}
	if stage.InterviewTips != "" {
		fmt.Fprintf(&sb, "\nInterview tip: %s\n", stage.InterviewTips)
	}

	p.printBox(strings.ToUpper(stage.Name), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIncidents outputs a one-line summary per incident.
func (p *Printer) PrintIncidents(incidents []types.Incident) {
	if len(incidents) == 0 {
		return
	}

	var sb strings.Builder
	for _, inc := range incidents {
		fmt.Fprintf(&sb, "%s  %-8s %s\n", inc.ID, inc.Severity, inc.Title)
	}
	p.printBox(fmt.Sprintf("INCIDENTS (%d)", len(incidents)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIncident outputs the facts of one incident.
func (p *Printer) PrintIncident(inc *types.Incident) {
	if inc == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Severity:    %s\n", inc.Severity)
	fmt.Fprintf(&sb, "Stage:       %s\n", inc.AffectedStage)
	fmt.Fprintf(&sb, "Environment: %s\n", inc.Environment)

	sb.WriteString("\nSymptoms:\n")
	for _, s := range inc.Symptoms {
		fmt.Fprintf(&sb, "  • %s\n", s)
	}

	if len(inc.Logs) > 0 {
		sb.WriteString("\nLogs:\n")
		count := min(len(inc.Logs), maxItemsToShow)
		for _, line := range inc.Logs[:count] {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
		if len(inc.Logs) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(inc.Logs)-maxItemsToShow)
		}
	}

	if len(inc.Timeline) > 0 {
		sb.WriteString("\nTimeline:\n")
		for _, e := range inc.Timeline {
			fmt.Fprintf(&sb, "  %s  %s\n", e.T, e.Event)
		}
	}

	p.printBox(inc.ID+" "+inc.Title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRCA outputs a root cause analysis.
func (p *Printer) PrintRCA(rca *sre.RCA) {
	if rca == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Root cause: %s\n", rca.RootCause)
	if len(rca.Resolution) > 0 {
		sb.WriteString("\nResolution:\n")
		for i, step := range rca.Resolution {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}
	if len(rca.Prevention) > 0 {
		sb.WriteString("\nPrevention:\n")
		for _, step := range rca.Prevention {
			fmt.Fprintf(&sb, "  • %s\n", step)
		}
	}
	fmt.Fprintf(&sb, "\nSource: %s", rca.Source)
	if rca.Warning != "" {
		fmt.Fprintf(&sb, " (AI unavailable: %s)", rca.Warning)
	}

	p.printBox("ROOT CAUSE ANALYSIS "+rca.IncidentID, sb.String())
}

// PrintRunResult outputs the final status of every stage of a run.
func (p *Printer) PrintRunResult(result *pipeline.Result, stages []types.Stage) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for _, stage := range stages {
		status := result.Statuses[stage.ID]
		label := string(status)
		if label == "" {
			label = "not run"
		}
		fmt.Fprintf(&sb, "%s %-24s %s\n", StatusIcon(status), stage.Name, label)
	}
	fmt.Fprintf(&sb, "\nOutcome:  %s\n", result.Outcome)
	if result.FailedStage != "" {
		fmt.Fprintf(&sb, "Failed:   %s\n", result.FailedStage)
	}
	fmt.Fprintf(&sb, "Duration: %s", result.Duration().Round(time.Millisecond))

	p.printBox("PIPELINE RUN "+result.ID.String(), sb.String())
}

// PrintAnswer outputs an assistant answer, or the error it carries.
func (p *Printer) PrintAnswer(title string, result relay.Result) {
	if result.OK {
		p.printBox(title, wrap(result.Value, boxWidth-4))
		return
	}
	p.printBox(title+" (error: "+string(result.Kind)+")", wrap(result.Answer(), boxWidth-4))
}

// wrap breaks text on spaces so that lines fit in width runes.
func wrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) > width:
				out = append(out, line)
				line = word
			default:
				line += " " + word
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
