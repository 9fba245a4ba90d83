package handler

import (
	"time"

	"github.com/mwhitford/leadchat/internal/domain"
)

// CreateSessionRequest starts a conversation session. Email is optional; when
// present, a returning visitor's prior capture seeds the new lead record.
type CreateSessionRequest struct {
	Email string `json:"email,omitempty"`
}

// SessionResponse describes a session's visible state.
type SessionResponse struct {
	SessionID string                       `json:"session_id"`
	Opened    bool                         `json:"opened"`
	Phase     string                       `json:"phase"`
	Qualified bool                         `json:"qualified"`
	Messages  []domain.ConversationMessage `json:"messages"`
}

// MessageRequest carries one visitor message or option click.
type MessageRequest struct {
	Text string `json:"text"`
}

// TurnResponse is the outcome of one dialogue turn.
type TurnResponse struct {
	Message   domain.ConversationMessage `json:"message"`
	Fallback  bool                       `json:"fallback,omitempty"`
	Phase     string                     `json:"phase"`
	Qualified bool                       `json:"qualified"`
	Terminal  bool                       `json:"terminal,omitempty"`
}

// Engagement event types the widget reports.
const (
	EventScroll   = "scroll"
	EventOpen     = "open"
	EventActivity = "activity"
	EventRestart  = "restart"
)

// EventRequest reports a page event: a scroll-depth sample or a manual open.
type EventRequest struct {
	Type    string `json:"type"`
	DepthPx int    `json:"depth_px,omitempty"`
}

// EventResponse acknowledges an engagement event. Message is set when a
// manual open emitted the opener prompt.
type EventResponse struct {
	Opened  bool                        `json:"opened"`
	Message *domain.ConversationMessage `json:"message,omitempty"`
}

// SubmitResponse confirms a final lead capture.
type SubmitResponse struct {
	CaptureID  string    `json:"capture_id"`
	Qualified  bool      `json:"qualified"`
	CapturedAt time.Time `json:"captured_at"`
}

// LeadCaptureResponse is the read shape of a stored capture.
type LeadCaptureResponse struct {
	ID                 string    `json:"id"`
	SessionKey         string    `json:"session_key"`
	Name               string    `json:"name"`
	BusinessName       string    `json:"business_name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Trade              string    `json:"trade"`
	TeamSize           string    `json:"team_size"`
	CallHandling       string    `json:"call_handling"`
	CallVolume         string    `json:"call_volume"`
	TicketValue        string    `json:"ticket_value"`
	Hesitation         string    `json:"hesitation"`
	MissedCalls        int       `json:"missed_calls"`
	PotentialLoss      int       `json:"potential_loss"`
	QualificationNotes []string  `json:"qualification_notes"`
	IsQualified        bool      `json:"is_qualified"`
	CapturedAt         time.Time `json:"captured_at"`
	IsPartial          bool      `json:"is_partial"`
}

// LeadListResponse pages through stored captures.
type LeadListResponse struct {
	Leads  []LeadCaptureResponse `json:"leads"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

func toLeadCaptureResponse(c *domain.LeadCapture) LeadCaptureResponse {
	return LeadCaptureResponse{
		ID:                 c.ID.String(),
		SessionKey:         c.SessionKey,
		Name:               c.Name,
		BusinessName:       c.BusinessName,
		Email:              c.Email,
		Phone:              c.Phone,
		Trade:              c.Trade,
		TeamSize:           c.TeamSize,
		CallHandling:       c.CallHandling,
		CallVolume:         c.CallVolumeDisplay,
		TicketValue:        c.TicketValueDisplay,
		Hesitation:         c.Hesitation,
		MissedCalls:        c.MissedCalls,
		PotentialLoss:      c.PotentialLoss,
		QualificationNotes: c.QualificationNotes,
		IsQualified:        c.IsQualified,
		CapturedAt:         c.CapturedAt,
		IsPartial:          c.IsPartial,
	}
}
