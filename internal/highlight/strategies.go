package highlight

import (
	"strings"

	"github.com/redline-labs/clausemark/pkg/utils"
)

// Strategy names, ordered most to least specific.
const (
	StrategyExactClauseText     = "exact_clause_text"
	StrategyDistinctivePhrase   = "distinctive_phrase"
	StrategyRepresentativeWords = "representative_words"
)

// Strategy derives search terms from a clause's stored text. Derive returns
// nil when the strategy cannot produce terms for this clause; the coordinator
// then moves on to the next strategy in the list.
type Strategy struct {
	Name   string
	Derive func(clauseText, renderedText string) []string
}

// DefaultStrategies returns the built-in strategy list, ordered by specificity.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyExactClauseText, Derive: deriveExact},
		{Name: StrategyDistinctivePhrase, Derive: derivePhrase},
		{Name: StrategyRepresentativeWords, Derive: deriveWords},
	}
}

// deriveExact submits the whole clause text as a single phrase. Whitespace is
// normalized because stored clause text and extracted page text rarely agree
// on spacing.
func deriveExact(clauseText, _ string) []string {
	text := utils.NormalizeSpace(clauseText)
	if text == "" {
		return nil
	}
	return []string{text}
}

const (
	maxPhraseWords = 8
	minPhraseWords = 3
)

// derivePhrase finds the longest word sequence (between minPhraseWords and
// maxPhraseWords long) that appears in both the clause text and the rendered
// text. Longer shared phrases are more distinctive, so window sizes are tried
// from largest to smallest.
func derivePhrase(clauseText, renderedText string) []string {
	words := strings.Fields(strings.ToLower(utils.NormalizeSpace(clauseText)))
	rendered := strings.ToLower(utils.NormalizeSpace(renderedText))
	if len(words) < minPhraseWords || rendered == "" {
		return nil
	}
	longest := maxPhraseWords
	if len(words) < longest {
		longest = len(words)
	}
	for size := longest; size >= minPhraseWords; size-- {
		for i := 0; i+size <= len(words); i++ {
			phrase := strings.Join(words[i:i+size], " ")
			if strings.Contains(rendered, phrase) {
				return []string{phrase}
			}
		}
	}
	return nil
}

// deriveWords picks up to three individual representative words: long enough
// to be distinctive, not stopwords, and actually present in the rendered text.
func deriveWords(clauseText, renderedText string) []string {
	rendered := strings.ToLower(utils.NormalizeSpace(renderedText))
	if rendered == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(utils.NormalizeSpace(clauseText))) {
		w = strings.Trim(w, ".,;:()[]\"'")
		if len(w) < 5 || isStopword(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		if strings.Contains(rendered, w) {
			terms = append(terms, w)
			if len(terms) == 3 {
				break
			}
		}
	}
	return terms
}

var stopwords = map[string]struct{}{
	"shall": {}, "hereby": {}, "herein": {}, "thereof": {}, "therein": {},
	"party": {}, "parties": {}, "agreement": {}, "section": {}, "clause": {},
	"which": {}, "under": {}, "their": {}, "other": {}, "these": {},
	"would": {}, "should": {}, "could": {}, "being": {}, "including": {},
	"without": {}, "within": {}, "between": {}, "pursuant": {},
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
