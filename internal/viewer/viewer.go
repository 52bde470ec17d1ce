// Package viewer provides the server-side rendered document view: extracted
// pages indexed for search, highlight spans, and match navigation. It is the
// production Surface and Inspector for the highlight coordinator.
package viewer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/redline-labs/clausemark/internal/highlight"
	"github.com/redline-labs/clausemark/pkg/utils"
)

// Match is one highlight span in the rendered view.
type Match struct {
	Page   int    `json:"page"`   // 0-based page index
	Offset int    `json:"offset"` // byte offset into the normalized page text
	Term   string `json:"term"`
}

// PageView holds one document's extracted pages plus the current highlight
// state. Pages are indexed in an in-memory bleve index; search first narrows
// candidate pages through the index, then locates literal occurrences inside
// them. Safe for concurrent use.
type PageView struct {
	mu        sync.Mutex
	pages     []string
	normPages []string // lowercased, whitespace-normalized page text
	index     bleve.Index
	matches   []Match
	current   int // 0-based index into matches; -1 when unset
}

type indexedPage struct {
	Content string `json:"content"`
}

// NewPageView indexes the given pages into a memory-only bleve index.
func NewPageView(pages []string) (*PageView, error) {
	im := bleve.NewIndexMapping()
	pageMapping := bleve.NewDocumentMapping()
	contentField := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so clause words
	// match the extracted text verbatim.
	contentField.Analyzer = standard.Name
	pageMapping.AddFieldMappingsAt("content", contentField)
	im.DefaultMapping = pageMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create page index: %w", err)
	}

	v := &PageView{
		pages:     pages,
		normPages: make([]string, len(pages)),
		index:     index,
		current:   -1,
	}
	for i, p := range pages {
		v.normPages[i] = strings.ToLower(utils.NormalizeSpace(p))
		if err := index.Index(strconv.Itoa(i), indexedPage{Content: p}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index page %d: %w", i, err)
		}
	}
	return v, nil
}

// Search highlights every occurrence of the given terms, replacing any
// previous highlights, and reports the total match count.
func (v *PageView) Search(ctx context.Context, terms []string) (highlight.MatchResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.matches = nil
	v.current = -1

	for _, term := range terms {
		norm := strings.ToLower(utils.NormalizeSpace(term))
		if norm == "" {
			continue
		}
		pages, err := v.candidatePages(norm)
		if err != nil {
			return highlight.MatchResult{}, err
		}
		for _, p := range pages {
			for _, off := range occurrences(v.normPages[p], norm) {
				v.matches = append(v.matches, Match{Page: p, Offset: off, Term: norm})
			}
		}
	}

	sort.Slice(v.matches, func(i, j int) bool {
		if v.matches[i].Page != v.matches[j].Page {
			return v.matches[i].Page < v.matches[j].Page
		}
		return v.matches[i].Offset < v.matches[j].Offset
	})
	return highlight.MatchResult{Total: len(v.matches)}, nil
}

// candidatePages runs the term through the bleve index and returns the sorted
// page indices that may contain it. The index tokenizes away punctuation, so
// it is a permissive filter; the literal scan decides the real occurrences.
func (v *PageView) candidatePages(term string) ([]int, error) {
	var q *bleve.SearchRequest
	if strings.ContainsRune(term, ' ') {
		pq := bleve.NewMatchPhraseQuery(term)
		pq.SetField("content")
		q = bleve.NewSearchRequest(pq)
	} else {
		mq := bleve.NewMatchQuery(term)
		mq.SetField("content")
		q = bleve.NewSearchRequest(mq)
	}
	q.Size = len(v.pages)
	res, err := v.index.Search(q)
	if err != nil {
		return nil, fmt.Errorf("page search failed: %w", err)
	}
	pages := make([]int, 0, len(res.Hits))
	for _, hit := range res.Hits {
		p, err := strconv.Atoi(hit.ID)
		if err != nil || p < 0 || p >= len(v.pages) {
			continue
		}
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// occurrences returns every byte offset of needle in haystack.
func occurrences(haystack, needle string) []int {
	var offs []int
	for start := 0; ; {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return offs
		}
		offs = append(offs, start+i)
		start += i + len(needle)
	}
}

// ClearHighlights removes all highlight spans.
func (v *PageView) ClearHighlights() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.matches = nil
	v.current = -1
}

// JumpToMatch positions the view at the given 1-based match index.
func (v *PageView) JumpToMatch(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if index < 1 || index > len(v.matches) {
		return fmt.Errorf("match index %d out of range [1,%d]", index, len(v.matches))
	}
	v.current = index - 1
	return nil
}

// JumpToNextMatch advances to the next match, wrapping at the end.
func (v *PageView) JumpToNextMatch() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.matches) == 0 {
		return fmt.Errorf("no matches to jump to")
	}
	v.current = (v.current + 1) % len(v.matches)
	return nil
}

// JumpToPreviousMatch moves to the previous match, wrapping at the start.
func (v *PageView) JumpToPreviousMatch() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.matches) == 0 {
		return fmt.Errorf("no matches to jump to")
	}
	v.current = (v.current - 1 + len(v.matches)) % len(v.matches)
	return nil
}

// CountHighlightElements returns the number of live highlight spans.
func (v *PageView) CountHighlightElements() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.matches)
}

// ExtractVisibleText returns the rendered text layer (all pages joined).
func (v *PageView) ExtractVisibleText() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return strings.Join(v.pages, "\n")
}

// Matches returns a copy of the current highlight spans.
func (v *PageView) Matches() []Match {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Match(nil), v.matches...)
}

// CurrentPage returns the 0-based page of the current match, or 0 when no
// match is selected.
func (v *PageView) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current < 0 || v.current >= len(v.matches) {
		return 0
	}
	return v.matches[v.current].Page
}

// Close releases the page index.
func (v *PageView) Close() error {
	return v.index.Close()
}
