// Package cli provides CLI output utilities for clausemark.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/redline-labs/clausemark/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteClauses writes a document's clauses to w in the given format.
func WriteClauses(w io.Writer, clauses []*models.Clause, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(clauses)
	default:
		writeClausesText(w, clauses)
		return nil
	}
}

func writeClausesText(w io.Writer, clauses []*models.Clause) {
	fmt.Fprintf(w, "\n%d clause(s)\n\n", len(clauses))
	for _, c := range clauses {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s | ID: %s\n", c.ClauseIndex, c.ClauseType, c.ID)
		if c.Heading != "" {
			fmt.Fprintf(w, "Heading: %s\n", c.Heading)
		}
		fmt.Fprintf(w, "\n%s\n", Truncate(c.Text, 200))
		fmt.Fprintln(w)
	}
}

// WriteHighlightResult writes a highlight outcome to w in the given format.
func WriteHighlightResult(w io.Writer, result *models.HighlightResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		writeHighlightResultText(w, result)
		return nil
	}
}

func writeHighlightResultText(w io.Writer, result *models.HighlightResult) {
	if result == nil {
		fmt.Fprintln(w, "no result")
		return
	}
	if result.Found {
		fmt.Fprintf(w, "found: %d match(es) via %s\n", result.MatchCount, result.Strategy)
		fmt.Fprintf(w, "terms: %s\n", strings.Join(result.Terms, " | "))
	} else {
		fmt.Fprintf(w, "not found (strategy: %s)\n", result.Strategy)
	}
	fmt.Fprintf(w, "clause: %s\n", result.ClauseID)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
