// Package qualify derives the lead-qualification verdict from a LeadRecord.
package qualify

import (
	"strconv"
	"strings"

	"github.com/mwhitford/leadchat/internal/domain"
)

// Result is the outcome of evaluating a lead.
type Result struct {
	IsQualified bool
	Notes       []string
}

// Evaluate derives the qualification verdict for a lead. Qualified requires
// all three of: a captured email, a concrete pain signal (missed calls or a
// stated hesitation), and a known trade. The function is pure: identical
// record content yields an identical result on every call, independent of
// which fields were populated last.
func Evaluate(lead *domain.LeadRecord) Result {
	var notes []string

	hasEmail := strings.TrimSpace(lead.Email) != ""
	hasTrade := strings.TrimSpace(lead.Trade) != ""
	hasPain := lead.MissedCalls > 0 || strings.TrimSpace(lead.Hesitation) != ""

	if hasEmail {
		notes = append(notes, "contact email captured")
	} else {
		notes = append(notes, "missing contact email")
	}

	if hasTrade {
		notes = append(notes, "trade identified: "+lead.Trade)
	} else {
		notes = append(notes, "trade not identified")
	}

	switch {
	case lead.MissedCalls > 0:
		notes = append(notes, "estimated missed calls per month: "+strconv.Itoa(lead.MissedCalls))
	case strings.TrimSpace(lead.Hesitation) != "":
		notes = append(notes, "stated hesitation: "+lead.Hesitation)
	default:
		notes = append(notes, "no concrete pain signal")
	}

	return Result{
		IsQualified: hasEmail && hasTrade && hasPain,
		Notes:       notes,
	}
}

// Apply evaluates the lead and writes the verdict back onto it. Notes are
// appended through the record's append-only note list.
func Apply(lead *domain.LeadRecord) {
	result := Evaluate(lead)
	lead.IsQualified = result.IsQualified
	for _, note := range result.Notes {
		lead.AppendNote(note)
	}
}
