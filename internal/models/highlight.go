package models

import "time"

// Highlight strategy names recorded on a HighlightResult. StrategyNone marks
// an exhausted attempt; StrategyError marks an attempt aborted by an error.
const (
	StrategyNone  = "none"
	StrategyError = "error"
)

// HighlightResult is the outcome of one clause highlighting attempt. A new
// attempt supersedes the previous result entirely; results are never merged.
// If Found is true, MatchCount >= 1 and Terms is non-empty.
type HighlightResult struct {
	ClauseID    string    `json:"clause_id"`
	Found       bool      `json:"found"`
	Strategy    string    `json:"strategy"`
	Terms       []string  `json:"terms,omitempty"`
	MatchCount  int       `json:"match_count"`
	CompletedAt time.Time `json:"completed_at"`
}
