// Package e2e provides end-to-end tests over a synthetic contract corpus.
package e2e

import (
	"fmt"
	"strings"
)

// ContractDoc is one contract in the corpus: an id, a title, and the full
// contract text with numbered clause headings.
type ContractDoc struct {
	ID    string
	Title string
	Text  string
}

// HighlightCase asks the coordinator to locate one clause of one document and
// expects the attempt to succeed.
type HighlightCase struct {
	DocID       string
	ClauseIndex int
	Description string
}

// Corpus holds contracts and highlight test cases.
type Corpus struct {
	Documents []ContractDoc
	Cases     []HighlightCase
}

// clauseTemplate is one clause topic; the body embeds %s so each contract gets
// a distinct counterparty name, keeping clause text unique across documents.
type clauseTemplate struct {
	heading string
	body    string
}

var clauseTemplates = []clauseTemplate{
	{"Term", "This agreement between %s and the customer commences on the effective date and continues for an initial period of twenty four months unless terminated earlier."},
	{"Payment Terms", "%s will invoice the customer monthly in arrears and each invoice is payable in full no later than thirty days after the invoice date."},
	{"Termination", "Either side may terminate for material breach if the breach remains uncured thirty days after %s delivers written notice describing the breach."},
	{"Confidentiality", "Each recipient must protect the confidential information of %s with at least the same degree of care it applies to its own proprietary records."},
	{"Limitation of Liability", "The aggregate liability of %s arising out of this engagement will not exceed the total fees paid during the twelve months preceding the claim."},
	{"Indemnification", "%s will defend the customer against any third claim alleging that the deliverables infringe a registered patent or copyright."},
	{"Notices", "All formal notices to %s must be delivered by registered mail or courier to the registered office address stated on the signature page."},
	{"Assignment", "Neither side may assign this agreement without the prior written consent of %s except to a successor acquiring substantially all of its assets."},
	{"Warranties", "%s warrants that the services will be performed in a professional and workmanlike manner consistent with prevailing industry standards."},
	{"Intellectual Property", "All intellectual property created by %s in the course of the engagement remains its exclusive property subject to the license granted below."},
	{"Governing Law", "This agreement is governed by the laws of the jurisdiction where %s maintains its principal place of business excluding conflict rules."},
	{"Force Majeure", "%s is excused from performance to the extent a natural disaster or governmental action beyond its reasonable control prevents performance."},
}

var counterparties = []string{
	"Northwind Logistics", "Meridian Analytics", "Cobalt Fabrication",
	"Harborview Systems", "Talline Energy", "Quarry Lake Software",
	"Bluecrest Manufacturing", "Ferndale Biotech",
}

const clausesPerContract = 4

// BuildCorpus returns a corpus of contracts plus highlight cases covering the
// first and last clause of each contract.
func BuildCorpus() *Corpus {
	const nDocs = 24
	c := &Corpus{}
	for i := 0; i < nDocs; i++ {
		party := counterparties[i%len(counterparties)]
		id := fmt.Sprintf("e2e-contract-%03d", i+1)

		var b strings.Builder
		for j := 0; j < clausesPerContract; j++ {
			tmpl := clauseTemplates[(i+j)%len(clauseTemplates)]
			fmt.Fprintf(&b, "%d. %s\n", j+1, tmpl.heading)
			fmt.Fprintf(&b, tmpl.body, party)
			b.WriteString("\n\n")
		}

		c.Documents = append(c.Documents, ContractDoc{
			ID:    id,
			Title: fmt.Sprintf("%s Master Agreement %d", party, i+1),
			Text:  strings.TrimSpace(b.String()),
		})
		c.Cases = append(c.Cases,
			HighlightCase{
				DocID:       id,
				ClauseIndex: 0,
				Description: fmt.Sprintf("first clause of %s", id),
			},
			HighlightCase{
				DocID:       id,
				ClauseIndex: clausesPerContract - 1,
				Description: fmt.Sprintf("last clause of %s", id),
			},
		)
	}
	return c
}
