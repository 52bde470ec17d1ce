// Package clause splits extracted contract text into clauses.
package clause

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/redline-labs/clausemark/internal/models"
)

// numberedHeading matches lines like "1. Term", "2.3 Payment Terms", or "Section 4 - Notices".
var numberedHeading = regexp.MustCompile(`^\s*((?:Section|Article|SECTION|ARTICLE)\s+)?\d+(\.\d+)*[.)\-:]?\s+\S`)

// Segmenter splits contract text into clauses at heading boundaries, falling
// back to paragraph grouping for documents without recognizable headings.
type Segmenter struct {
	minWords int // clauses shorter than this are merged into the previous one
}

// NewSegmenter returns a segmenter with default thresholds.
func NewSegmenter() *Segmenter {
	return &Segmenter{minWords: 5}
}

// Segment splits text into ordered clauses for docID.
func (s *Segmenter) Segment(docID, text string) []*models.Clause {
	lines := strings.Split(text, "\n")

	type block struct {
		heading string
		body    []string
	}
	var blocks []block
	current := block{}
	flush := func() {
		if current.heading != "" || len(current.body) > 0 {
			blocks = append(blocks, current)
		}
		current = block{}
	}

	headingSeen := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isHeading(trimmed) {
			flush()
			current.heading = trimmed
			headingSeen = true
			continue
		}
		current.body = append(current.body, trimmed)
	}
	flush()

	if !headingSeen {
		return s.segmentParagraphs(docID, text)
	}

	var clauses []*models.Clause
	for _, b := range blocks {
		body := strings.Join(b.body, " ")
		if b.heading != "" && len(strings.Fields(body)) < s.minWords && len(clauses) > 0 {
			// Heading with no real body: most likely a sub-heading of the
			// previous clause; fold it in.
			prev := clauses[len(clauses)-1]
			prev.Text = strings.TrimSpace(prev.Text + " " + b.heading + " " + body)
			continue
		}
		clauses = append(clauses, s.newClause(docID, len(clauses), b.heading, body))
	}
	return clauses
}

// segmentParagraphs is the fallback for unstructured documents: blank-line
// separated paragraphs, each its own clause.
func (s *Segmenter) segmentParagraphs(docID, text string) []*models.Clause {
	var clauses []*models.Clause
	for _, para := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		body := strings.Join(strings.Fields(para), " ")
		if len(strings.Fields(body)) < s.minWords {
			continue
		}
		clauses = append(clauses, s.newClause(docID, len(clauses), "", body))
	}
	return clauses
}

func (s *Segmenter) newClause(docID string, index int, heading, body string) *models.Clause {
	text := body
	if heading != "" {
		text = strings.TrimSpace(heading + " " + body)
	}
	return &models.Clause{
		ID:          fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
		DocumentID:  docID,
		Heading:     heading,
		ClauseType:  classify(heading, body),
		Text:        text,
		ClauseIndex: index,
	}
}

// isHeading reports whether a line opens a new clause: a numbered heading or
// a short all-caps line ("CONFIDENTIALITY", "GOVERNING LAW").
func isHeading(line string) bool {
	if numberedHeading.MatchString(line) {
		return true
	}
	if len(line) > 60 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 3
}

// clauseTypes maps heading keywords to a clause type tag for the review UI.
var clauseTypes = []struct {
	keyword string
	tag     string
}{
	{"terminat", "termination"},
	{"confidential", "confidentiality"},
	{"indemnif", "indemnification"},
	{"payment", "payment"},
	{"fee", "payment"},
	{"liabilit", "liability"},
	{"governing law", "governing_law"},
	{"jurisdiction", "governing_law"},
	{"notice", "notices"},
	{"assignment", "assignment"},
	{"warrant", "warranties"},
	{"intellectual property", "ip"},
}

func classify(heading, body string) string {
	probe := strings.ToLower(heading)
	if probe == "" {
		// No heading: classify on the first few words of the body.
		words := strings.Fields(strings.ToLower(body))
		if len(words) > 12 {
			words = words[:12]
		}
		probe = strings.Join(words, " ")
	}
	for _, ct := range clauseTypes {
		if strings.Contains(probe, ct.keyword) {
			return ct.tag
		}
	}
	return "general"
}
