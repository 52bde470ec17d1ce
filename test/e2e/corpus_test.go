package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpusShape(t *testing.T) {
	c := BuildCorpus()
	if len(c.Documents) == 0 {
		t.Fatal("no documents")
	}
	if len(c.Cases) != 2*len(c.Documents) {
		t.Errorf("cases: %d, want 2 per document", len(c.Cases))
	}

	ids := make(map[string]ContractDoc, len(c.Documents))
	for _, d := range c.Documents {
		if _, dup := ids[d.ID]; dup {
			t.Errorf("duplicate document id %s", d.ID)
		}
		ids[d.ID] = d
		if strings.Count(d.Text, "\n1. ") > 0 || !strings.HasPrefix(d.Text, "1. ") {
			t.Errorf("document %s does not start with a numbered heading", d.ID)
		}
		for i := 1; i <= clausesPerContract; i++ {
			if !strings.Contains(d.Text, string(rune('0'+i))+". ") {
				t.Errorf("document %s missing heading %d", d.ID, i)
			}
		}
	}

	for _, tc := range c.Cases {
		if _, ok := ids[tc.DocID]; !ok {
			t.Errorf("case %q references unknown document %s", tc.Description, tc.DocID)
		}
		if tc.ClauseIndex < 0 || tc.ClauseIndex >= clausesPerContract {
			t.Errorf("case %q has out-of-range clause index %d", tc.Description, tc.ClauseIndex)
		}
	}
}

func TestBuildCorpusTextsDiffer(t *testing.T) {
	c := BuildCorpus()
	seen := make(map[string]string)
	for _, d := range c.Documents {
		if prev, dup := seen[d.Text]; dup {
			t.Errorf("documents %s and %s share identical text", prev, d.ID)
		}
		seen[d.Text] = d.ID
	}
}
