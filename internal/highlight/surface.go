// Package highlight locates a clause's text inside a rendered document view
// and drives match navigation. It is best-effort by design: no failure here
// escapes to the caller; every error path downgrades to a not-found result.
package highlight

import "context"

// MatchResult is what a Surface reports for one search invocation.
type MatchResult struct {
	Total int `json:"total"`
}

// Surface is the set of primitives supplied by the rendered document view.
// Search submits terms for highlighting, ClearHighlights removes all current
// highlights, and the jump primitives move the view between matches
// (JumpToMatch takes a 1-based index).
type Surface interface {
	Search(ctx context.Context, terms []string) (MatchResult, error)
	ClearHighlights()
	JumpToMatch(index int) error
	JumpToNextMatch() error
	JumpToPreviousMatch() error
}

// Inspector gives the coordinator read access to the live rendered output.
// Verification inspects it directly because a successful Search call cannot be
// trusted on its own: asynchronous rendering can lag behind.
type Inspector interface {
	CountHighlightElements() int
	ExtractVisibleText() string
}

// ViewMode selects the timing profile. Continuous-scroll views need longer
// settling time than single-page views.
type ViewMode string

const (
	ViewSinglePage       ViewMode = "single_page"
	ViewContinuousScroll ViewMode = "continuous_scroll"
)
