// Package observability provides structured logging setup, the error-reporting
// sink, Prometheus metrics and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
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
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, marking the cut with "..."
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintStage outputs one line of pipeline progress.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintStage(index, total int, name, status string, duration time.Duration) {
	icon := "…"
	switch status {
	case string(types.StageStatusCompleted):
		icon = "✓"
	case string(types.StageStatusFailed):
		icon = "✗"
	case "substituted":
		icon = "~"
	}
	if duration > 0 {
		fmt.Fprintf(p.out, "[%d/%d] %s %-24s %s\n", index, total, icon, name, duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] %s %s\n", index, total, icon, name)
}

// PrintJobSummary outputs the outcome of an analysis job with its stage records.
func (p *Printer) PrintJobSummary(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Product:  %s\n", job.ProductID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	if job.Provider != "" {
		sb.WriteString(fmt.Sprintf("Provider: %s\n", job.Provider))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", job.Error))
	}
	sb.WriteString("\n")

	for _, stage := range job.Stages {
		mark := "✓"
		switch {
		case stage.Status == types.StageStatusFailed:
			mark = "✗"
		case stage.Substituted:
			mark = "~"
		case stage.Status == types.StageStatusRunning:
			mark = "…"
		}
		sb.WriteString(fmt.Sprintf("%s %-26s %6dms\n", mark, stage.Name, stage.DurationMs))
	}

	if r := job.Result; r != nil {
		sb.WriteString("\n")
		if r.ProductAnalysis != nil {
			sb.WriteString(fmt.Sprintf("Verdict:  %s\n", r.ProductAnalysis.Verdict))
			sb.WriteString(fmt.Sprintf("Score:    %.0f/100\n", r.ProductAnalysis.OverallScore))
		}
		if r.SEOScore != nil {
			sb.WriteString(fmt.Sprintf("SEO:      %.0f/100\n", r.SEOScore.Score))
		}
		if r.Quality != nil {
			sb.WriteString(fmt.Sprintf("Quality:  %.2f\n", r.Quality.OverallScore))
		}
	}

	p.printBox("ANALYSIS JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOpportunities outputs product ideas found for a niche.
func (p *Printer) PrintOpportunities(result *types.OpportunityResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Niche: %s\n\n", result.Niche))

	count := min(len(result.ProductIdeas), maxItemsToShow)
	for i := 0; i < count; i++ {
		idea := result.ProductIdeas[i]
		sb.WriteString(fmt.Sprintf("• %s\n", idea.Name))
		if idea.Reason != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", idea.Reason))
		}
	}
	if len(result.ProductIdeas) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more ideas\n", len(result.ProductIdeas)-maxItemsToShow))
	}

	p.printBox("PRODUCT OPPORTUNITIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFreshness outputs the market freshness check of a product.
func (p *Printer) PrintFreshness(productName string, result *types.FreshnessResult) {
	if result == nil {
		return
	}

	status := "✅ CURRENT"
	if result.IsOutdated {
		status = "⚠ OUTDATED"
	}
	p.printBox("MARKET CHECK: "+productName, fmt.Sprintf("%s\n%s", status, result.Reason))
}
