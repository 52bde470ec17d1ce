package viewer

import (
	"context"
	"strings"
	"testing"
)

func testPages() []string {
	return []string{
		"This Agreement shall commence on the Effective Date.",
		"Either party may terminate this Agreement with notice. A second notice follows.",
		"Payment is due within thirty days of invoice.",
	}
}

func newTestView(t *testing.T) *PageView {
	t.Helper()
	v, err := NewPageView(testPages())
	if err != nil {
		t.Fatalf("NewPageView: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestSearchSingleTerm(t *testing.T) {
	v := newTestView(t)

	res, err := v.Search(context.Background(), []string{"agreement"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total: got %d, want 2", res.Total)
	}
	matches := v.Matches()
	if len(matches) != 2 {
		t.Fatalf("matches: %v", matches)
	}
	if matches[0].Page != 0 || matches[1].Page != 1 {
		t.Errorf("match pages: %d, %d", matches[0].Page, matches[1].Page)
	}
	if v.CountHighlightElements() != 2 {
		t.Errorf("highlight elements: %d", v.CountHighlightElements())
	}
}

func TestSearchPhrase(t *testing.T) {
	v := newTestView(t)

	res, err := v.Search(context.Background(), []string{"party may terminate"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("total: got %d, want 1", res.Total)
	}
	m := v.Matches()[0]
	if m.Page != 1 {
		t.Errorf("page: got %d, want 1", m.Page)
	}
	if m.Term != "party may terminate" {
		t.Errorf("term: got %q", m.Term)
	}
}

func TestSearchMultipleOccurrencesOnOnePage(t *testing.T) {
	v := newTestView(t)

	res, err := v.Search(context.Background(), []string{"notice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total: got %d, want 2", res.Total)
	}
	matches := v.Matches()
	if matches[0].Page != 1 || matches[1].Page != 1 {
		t.Errorf("pages: %v", matches)
	}
	if matches[0].Offset >= matches[1].Offset {
		t.Errorf("matches not ordered by offset: %v", matches)
	}
}

func TestSearchReplacesPreviousHighlights(t *testing.T) {
	v := newTestView(t)
	ctx := context.Background()

	if _, err := v.Search(ctx, []string{"agreement"}); err != nil {
		t.Fatal(err)
	}
	res, err := v.Search(ctx, []string{"invoice"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || v.CountHighlightElements() != 1 {
		t.Errorf("previous highlights not replaced: total=%d count=%d", res.Total, v.CountHighlightElements())
	}
}

func TestSearchNoMatches(t *testing.T) {
	v := newTestView(t)
	res, err := v.Search(context.Background(), []string{"arbitration"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("total: got %d, want 0", res.Total)
	}
}

func TestSearchSkipsEmptyTerms(t *testing.T) {
	v := newTestView(t)
	res, err := v.Search(context.Background(), []string{"", "   ", "invoice"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("total: got %d, want 1", res.Total)
	}
}

func TestClearHighlights(t *testing.T) {
	v := newTestView(t)
	if _, err := v.Search(context.Background(), []string{"agreement"}); err != nil {
		t.Fatal(err)
	}
	v.ClearHighlights()
	if v.CountHighlightElements() != 0 {
		t.Error("highlights remain after clear")
	}
	if got := v.CurrentPage(); got != 0 {
		t.Errorf("current page after clear: %d", got)
	}
}

func TestJumpToMatchBounds(t *testing.T) {
	v := newTestView(t)
	if _, err := v.Search(context.Background(), []string{"agreement"}); err != nil {
		t.Fatal(err)
	}

	if err := v.JumpToMatch(0); err == nil {
		t.Error("JumpToMatch(0): want error (indices are 1-based)")
	}
	if err := v.JumpToMatch(3); err == nil {
		t.Error("JumpToMatch past end: want error")
	}
	if err := v.JumpToMatch(2); err != nil {
		t.Errorf("JumpToMatch(2): %v", err)
	}
	if v.CurrentPage() != 1 {
		t.Errorf("current page: got %d, want 1", v.CurrentPage())
	}
}

func TestJumpNavigationWraps(t *testing.T) {
	v := newTestView(t)
	if _, err := v.Search(context.Background(), []string{"agreement"}); err != nil {
		t.Fatal(err)
	}

	// current starts unset; first next lands on the first match.
	if err := v.JumpToNextMatch(); err != nil {
		t.Fatal(err)
	}
	if v.CurrentPage() != 0 {
		t.Errorf("page after first next: %d", v.CurrentPage())
	}
	_ = v.JumpToNextMatch()
	if v.CurrentPage() != 1 {
		t.Errorf("page after second next: %d", v.CurrentPage())
	}
	_ = v.JumpToNextMatch() // wraps
	if v.CurrentPage() != 0 {
		t.Errorf("page after wrap: %d", v.CurrentPage())
	}
	_ = v.JumpToPreviousMatch() // wraps back to the last match
	if v.CurrentPage() != 1 {
		t.Errorf("page after previous wrap: %d", v.CurrentPage())
	}
}

func TestJumpWithNoMatches(t *testing.T) {
	v := newTestView(t)
	if err := v.JumpToNextMatch(); err == nil {
		t.Error("JumpToNextMatch with no matches: want error")
	}
	if err := v.JumpToPreviousMatch(); err == nil {
		t.Error("JumpToPreviousMatch with no matches: want error")
	}
}

func TestExtractVisibleText(t *testing.T) {
	v := newTestView(t)
	got := v.ExtractVisibleText()
	want := strings.Join(testPages(), "\n")
	if got != want {
		t.Errorf("got %q", got)
	}
}
