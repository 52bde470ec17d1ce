package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text pages, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
// Form feeds mark page boundaries; text without them is a single page.
func extractPlain(content []byte) ([]string, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "�")
	}
	if !strings.Contains(text, "\f") {
		return []string{text}, nil
	}
	parts := strings.Split(text, "\f")
	pages := make([]string, len(parts))
	for i, p := range parts {
		pages[i] = strings.TrimSpace(p)
	}
	return pages, nil
}
