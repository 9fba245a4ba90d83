package domain

import (
	"testing"
	"time"
)

func TestTicketValueDisplay(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, ""},
		{-5, ""},
		{100, "Under $500"},
		{350, "Under $500"},
		{351, "$500-1,000"},
		{750, "$500-1,000"},
		{751, "$1,000-2,500"},
		{1200, "$1,000-2,500"},
		{1750, "$1,000-2,500"},
		{1751, "$2,500+"},
		{9000, "$2,500+"},
	}

	for _, tt := range tests {
		if got := TicketValueDisplay(tt.value); got != tt.want {
			t.Errorf("TicketValueDisplay(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestCallVolumeDisplay(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, ""},
		{2, "Under 5 calls"},
		{3, "Under 5 calls"},
		{4, "5-10 calls"},
		{7, "5-10 calls"},
		{8, "10-20 calls"},
		{10, "10-20 calls"},
		{15, "10-20 calls"},
		{16, "20+ calls"},
		{40, "20+ calls"},
	}

	for _, tt := range tests {
		if got := CallVolumeDisplay(tt.value); got != tt.want {
			t.Errorf("CallVolumeDisplay(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestLeadRecord_Recompute(t *testing.T) {
	lead := NewLeadRecord()
	lead.CallVolume = 10
	lead.TicketValue = 1200
	lead.CallHandling = CallHandlingMyself

	lead.Recompute()

	// 10 calls/day * 0.30 miss rate * 20 working days = 60
	if lead.MissedCalls != 60 {
		t.Errorf("MissedCalls = %d, want 60", lead.MissedCalls)
	}
	if lead.PotentialLoss != 60*1200 {
		t.Errorf("PotentialLoss = %d, want %d", lead.PotentialLoss, 60*1200)
	}
}

func TestLeadRecord_Recompute_Idempotent(t *testing.T) {
	lead := NewLeadRecord()
	lead.CallVolume = 12
	lead.TicketValue = 500
	lead.CallHandling = CallHandlingVoicemail

	lead.Recompute()
	first, firstLoss := lead.MissedCalls, lead.PotentialLoss

	lead.Recompute()
	if lead.MissedCalls != first || lead.PotentialLoss != firstLoss {
		t.Errorf("second Recompute changed outputs: (%d, %d) != (%d, %d)",
			lead.MissedCalls, lead.PotentialLoss, first, firstLoss)
	}
}

func TestLeadRecord_Recompute_NoVolume(t *testing.T) {
	lead := NewLeadRecord()
	lead.TicketValue = 1200
	lead.MissedCalls = 99
	lead.PotentialLoss = 99

	lead.Recompute()

	if lead.MissedCalls != 0 || lead.PotentialLoss != 0 {
		t.Errorf("expected zero derived fields without call volume, got (%d, %d)",
			lead.MissedCalls, lead.PotentialLoss)
	}
}

func TestLeadRecord_MissRate(t *testing.T) {
	tests := []struct {
		handling CallHandling
		want     float64
	}{
		{CallHandlingMyself, 0.30},
		{CallHandlingOfficeStaff, 0.12},
		{CallHandlingAnsweringService, 0.05},
		{CallHandlingVoicemail, 0.45},
		{CallHandling("unknown"), 0.20},
		{CallHandling(""), 0.20},
	}

	for _, tt := range tests {
		lead := &LeadRecord{CallHandling: tt.handling}
		if got := lead.MissRate(); got != tt.want {
			t.Errorf("MissRate(%q) = %v, want %v", tt.handling, got, tt.want)
		}
	}
}

func TestLeadRecord_AppendNote(t *testing.T) {
	lead := NewLeadRecord()
	lead.AppendNote("has email")
	lead.AppendNote("pain signal present")
	lead.AppendNote("has email") // duplicate

	if len(lead.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d: %v", len(lead.Notes), lead.Notes)
	}
	if lead.Notes[0] != "has email" || lead.Notes[1] != "pain signal present" {
		t.Errorf("notes out of order: %v", lead.Notes)
	}
}

func TestLeadRecord_Clone(t *testing.T) {
	lead := NewLeadRecord()
	lead.Email = "a@b.com"
	lead.AppendNote("note one")

	clone := lead.Clone()
	clone.Email = "other@b.com"
	clone.Notes[0] = "mutated"

	if lead.Email != "a@b.com" {
		t.Errorf("clone mutation leaked into original email")
	}
	if lead.Notes[0] != "note one" {
		t.Errorf("clone mutation leaked into original notes")
	}
}

func TestNewLeadCapture(t *testing.T) {
	lead := NewLeadRecord()
	lead.Name = "Dana"
	lead.Email = "dana@hvacpros.com"
	lead.Trade = "HVAC"
	lead.CallVolume = 10
	lead.TicketValue = 1200
	lead.CallHandling = CallHandlingMyself
	lead.Hesitation = "too expensive"
	lead.Recompute()
	lead.IsQualified = true
	lead.AppendNote("qualified")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	capture := NewLeadCapture("lead:abc", lead, at, true)

	if capture.CallVolumeDisplay != "10-20 calls" {
		t.Errorf("CallVolumeDisplay = %q, want %q", capture.CallVolumeDisplay, "10-20 calls")
	}
	if capture.TicketValueDisplay != "$1,000-2,500" {
		t.Errorf("TicketValueDisplay = %q, want %q", capture.TicketValueDisplay, "$1,000-2,500")
	}
	if !capture.IsPartial {
		t.Error("expected IsPartial = true")
	}
	if !capture.CapturedAt.Equal(at) {
		t.Errorf("CapturedAt = %v, want %v", capture.CapturedAt, at)
	}
	if capture.MissedCalls != lead.MissedCalls {
		t.Errorf("MissedCalls = %d, want %d", capture.MissedCalls, lead.MissedCalls)
	}

	// Capture owns its own notes slice.
	capture.QualificationNotes[0] = "mutated"
	if lead.Notes[0] != "qualified" {
		t.Error("capture notes alias the lead's notes")
	}
}

func TestSessionKeyForEmail(t *testing.T) {
	a := SessionKeyForEmail("Dana@HVACpros.com")
	b := SessionKeyForEmail("  dana@hvacpros.com ")
	if a != b {
		t.Errorf("expected case/space-insensitive keys, got %q vs %q", a, b)
	}
	if a == SessionKeyForEmail("other@hvacpros.com") {
		t.Error("different emails produced the same key")
	}
}
