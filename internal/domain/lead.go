// Package domain contains the core business entities and interfaces.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallHandling describes who answers the phone at the visitor's business.
type CallHandling string

const (
	CallHandlingMyself           CallHandling = "myself"
	CallHandlingOfficeStaff      CallHandling = "office-staff"
	CallHandlingAnsweringService CallHandling = "answering-service"
	CallHandlingVoicemail        CallHandling = "voicemail"
)

// Missed-call rates by handling maturity. Unknown handling uses missRateDefault.
const (
	missRateMyself           = 0.30
	missRateOfficeStaff      = 0.12
	missRateAnsweringService = 0.05
	missRateVoicemail        = 0.45
	missRateDefault          = 0.20

	workingDaysPerMonth = 20
)

// LeadRecord is the mutable aggregate accumulated over one conversation.
//
// CallVolume and TicketValue hold canonical bucket-midpoint integers; the
// display strings are derived at persistence time, never stored back. The
// derived fields MissedCalls and PotentialLoss are recomputed from the raw
// inputs after every merge and must never be set directly.
type LeadRecord struct {
	Name         string       `json:"name"`
	BusinessName string       `json:"business_name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Trade        string       `json:"trade"`
	TeamSize     string       `json:"team_size"`
	CallHandling CallHandling `json:"call_handling"`
	CallVolume   int          `json:"call_volume"`  // calls per day, bucket midpoint
	TicketValue  int          `json:"ticket_value"` // dollars, bucket midpoint
	Hesitation   string       `json:"hesitation"`

	// Derived, see Recompute.
	MissedCalls   int `json:"missed_calls"`
	PotentialLoss int `json:"potential_loss"`

	Phase       Phase    `json:"conversation_phase"`
	IsQualified bool     `json:"is_qualified"`
	Notes       []string `json:"notes"`
}

// NewLeadRecord returns an empty record positioned at the opener phase.
func NewLeadRecord() *LeadRecord {
	return &LeadRecord{Phase: PhaseOpener}
}

// Clone returns a deep copy of the record. Gateway requests and persistence
// snapshots operate on clones so an in-flight call never observes a merge.
func (l *LeadRecord) Clone() *LeadRecord {
	c := *l
	c.Notes = append([]string(nil), l.Notes...)
	return &c
}

// MissRate returns the fraction of inbound calls assumed missed for the
// record's call handling setup.
func (l *LeadRecord) MissRate() float64 {
	switch l.CallHandling {
	case CallHandlingMyself:
		return missRateMyself
	case CallHandlingOfficeStaff:
		return missRateOfficeStaff
	case CallHandlingAnsweringService:
		return missRateAnsweringService
	case CallHandlingVoicemail:
		return missRateVoicemail
	default:
		return missRateDefault
	}
}

// Recompute recalculates MissedCalls and PotentialLoss from CallVolume,
// CallHandling, and TicketValue. Pure and idempotent: identical inputs yield
// identical outputs regardless of how many times it runs.
func (l *LeadRecord) Recompute() {
	if l.CallVolume <= 0 {
		l.MissedCalls = 0
		l.PotentialLoss = 0
		return
	}
	l.MissedCalls = int(math.Round(float64(l.CallVolume) * l.MissRate() * workingDaysPerMonth))
	l.PotentialLoss = l.MissedCalls * l.TicketValue
}

// HasEmail reports whether a contact email was captured.
func (l *LeadRecord) HasEmail() bool {
	return strings.TrimSpace(l.Email) != ""
}

// AppendNote appends a qualification note. Notes are append-only within a
// session; duplicates are skipped so re-evaluation stays idempotent.
func (l *LeadRecord) AppendNote(note string) {
	for _, n := range l.Notes {
		if n == note {
			return
		}
	}
	l.Notes = append(l.Notes, note)
}

// TicketValueDisplay maps the canonical ticket-value midpoint to its
// display bucket.
func TicketValueDisplay(v int) string {
	switch {
	case v <= 0:
		return ""
	case v <= 350:
		return "Under $500"
	case v <= 750:
		return "$500-1,000"
	case v <= 1750:
		return "$1,000-2,500"
	default:
		return "$2,500+"
	}
}

// CallVolumeDisplay maps the canonical call-volume midpoint to its
// display bucket.
func CallVolumeDisplay(v int) string {
	switch {
	case v <= 0:
		return ""
	case v <= 3:
		return "Under 5 calls"
	case v <= 7:
		return "5-10 calls"
	case v <= 15:
		return "10-20 calls"
	default:
		return "20+ calls"
	}
}

// LeadCapture is the external persistence shape of a LeadRecord. Numeric
// buckets are translated to display strings here so the stored schema stays
// decoupled from the canonical arithmetic representation.
type LeadCapture struct {
	ID                 uuid.UUID `json:"id"`
	SessionKey         string    `json:"session_key"`
	Name               string    `json:"name"`
	BusinessName       string    `json:"business_name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Trade              string    `json:"trade"`
	TeamSize           string    `json:"team_size"`
	CallHandling       string    `json:"call_handling"`
	CallVolumeDisplay  string    `json:"call_volume_display"`
	TicketValueDisplay string    `json:"ticket_value_display"`
	Hesitation         string    `json:"hesitation"`
	MissedCalls        int       `json:"missed_calls"`
	PotentialLoss      int       `json:"potential_loss"`
	QualificationNotes []string  `json:"qualification_notes"`
	IsQualified        bool      `json:"is_qualified"`
	CapturedAt         time.Time `json:"captured_at"`
	IsPartial          bool      `json:"is_partial"`
}

// NewLeadCapture snapshots a LeadRecord into its persistence shape.
func NewLeadCapture(sessionKey string, lead *LeadRecord, capturedAt time.Time, partial bool) *LeadCapture {
	return &LeadCapture{
		ID:                 uuid.New(),
		SessionKey:         sessionKey,
		Name:               lead.Name,
		BusinessName:       lead.BusinessName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		Trade:              lead.Trade,
		TeamSize:           lead.TeamSize,
		CallHandling:       string(lead.CallHandling),
		CallVolumeDisplay:  CallVolumeDisplay(lead.CallVolume),
		TicketValueDisplay: TicketValueDisplay(lead.TicketValue),
		Hesitation:         lead.Hesitation,
		MissedCalls:        lead.MissedCalls,
		PotentialLoss:      lead.PotentialLoss,
		QualificationNotes: append([]string(nil), lead.Notes...),
		IsQualified:        lead.IsQualified,
		CapturedAt:         capturedAt.UTC(),
		IsPartial:          partial,
	}
}

// SessionKeyForEmail derives a stable session key from a captured email so a
// returning visitor resumes the same lead. Anonymous visitors get random keys.
func SessionKeyForEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "lead:" + hex.EncodeToString(sum[:16])
}
