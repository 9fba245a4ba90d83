// Package session owns the per-conversation state the engine accumulates:
// the lead record, the transcript, the current phase, the activity
// timestamp, and the single-shot guards for auto-open and submission. All of
// it lives on one Session object with an explicit lifecycle; nothing is
// process-global.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/domain"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/extract"
	"github.com/mwhitford/leadchat/internal/gateway"
	"github.com/mwhitford/leadchat/internal/metrics"
	"github.com/mwhitford/leadchat/internal/qualify"
	"github.com/mwhitford/leadchat/internal/script"
)

// OpenTrigger identifies what opened the widget.
type OpenTrigger string

const (
	OpenTriggerTime   OpenTrigger = "time"
	OpenTriggerScroll OpenTrigger = "scroll"
	OpenTriggerManual OpenTrigger = "manual"
)

// TurnResult is the outcome of one dialogue turn.
type TurnResult struct {
	// Message is the bot message appended to the transcript.
	Message domain.ConversationMessage
	// Fallback is true when the turn failed and the message is the scripted
	// recovery prompt. The phase was held and the lead was not mutated.
	Fallback bool
	// Phase is the conversation phase after the turn.
	Phase domain.Phase
	// Qualified reflects the lead's verdict after the turn.
	Qualified bool
	// Terminal is true when the conversation reached a closing phase.
	Terminal bool
}

// Session is one visitor conversation. Methods are safe for concurrent use;
// the browser's event loop is replaced here by a mutex plus an explicit
// in-flight flag that keeps dialogue turns serialized.
type Session struct {
	ID  uuid.UUID
	Key string

	gw      gateway.DialogueGateway
	clk     clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	lead          *domain.LeadRecord
	transcript    []domain.ConversationMessage
	history       []domain.HistoryEntry
	nextMessageID int
	createdAt     time.Time
	lastActivity  time.Time
	opened        bool
	hasAutoOpened bool
	hasSubmitted  bool
	turnInFlight  bool
}

// New creates a session with an empty lead record at the opener phase. The
// key is stable for returning visitors identified by email, random otherwise.
func New(key string, gw gateway.DialogueGateway, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Session {
	now := clk.Now()
	return &Session{
		ID:           uuid.New(),
		Key:          key,
		gw:           gw,
		clk:          clk,
		logger:       logger,
		metrics:      m,
		lead:         domain.NewLeadRecord(),
		createdAt:    now,
		lastActivity: now,
	}
}

// Open marks the widget open and emits the opener message exactly once.
// Auto-open (trigger-driven) is a no-op if the widget is already open or has
// auto-opened before. Manual opening is always permitted regardless of prior
// trigger state; reopening manually simply returns no new message.
func (s *Session) Open(trigger OpenTrigger) (*domain.ConversationMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trigger != OpenTriggerManual {
		if s.hasAutoOpened || s.opened {
			return nil, false
		}
		s.hasAutoOpened = true
	} else if s.opened {
		return nil, false
	}

	s.opened = true

	prompt := script.Opener()
	msg := s.appendBotLocked(prompt.Text, prompt.Options, prompt.MultiSelect)

	if s.metrics != nil {
		s.metrics.RecordWidgetOpen(string(trigger))
	}
	s.logger.Info("widget opened",
		zap.String("session_id", s.ID.String()),
		zap.String("trigger", string(trigger)),
	)
	return &msg, true
}

// RecordActivity resets the inactivity timestamp. Only visitor-originated
// events call this; bot messages and background timers must not, or true
// inactivity would be masked.
func (s *Session) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.clk.Now()
}

// HandleTurn runs one dialogue turn for a visitor message or option click.
// At most one turn may be in flight per session; a second send while one is
// outstanding is rejected with ErrTurnInFlight rather than raced or queued.
func (s *Session) HandleTurn(ctx context.Context, text string) (*TurnResult, error) {
	s.mu.Lock()

	if s.lead.Phase.IsTerminal() {
		s.mu.Unlock()
		return nil, apperrors.ErrSessionClosed
	}
	if s.turnInFlight {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.TurnsRejected.Inc()
		}
		return nil, apperrors.ErrTurnInFlight
	}
	s.turnInFlight = true

	// A typed message is a visitor action on both counts: it resets the
	// inactivity clock and counts as a manual open if no trigger fired yet.
	s.lastActivity = s.clk.Now()
	s.opened = true

	s.appendUserLocked(text)

	req := &gateway.TurnRequest{
		ConversationHistory: append([]domain.HistoryEntry(nil), s.history...),
		LeadRecord:          s.lead.Clone(),
		LatestMessage:       text,
	}
	s.mu.Unlock()

	// Sole suspension point: the gateway call runs outside the lock so
	// activity reports and autosave checks proceed while a turn is pending.
	start := s.clk.Now()
	reply, err := s.gw.CompleteTurn(ctx, req)
	callDuration := s.clk.Now().Sub(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnInFlight = false

	if s.metrics != nil {
		s.metrics.RecordGatewayCall(err == nil, callDuration)
	}

	// Transport failure and semantic error are contained identically: the
	// visitor sees the scripted fallback, the phase holds, the lead is
	// untouched. The conversation survives the turn.
	if err != nil || reply.Error != "" {
		if err != nil {
			s.logger.Warn("dialogue turn failed",
				zap.String("session_id", s.ID.String()),
				zap.Error(err),
			)
		} else {
			s.logger.Warn("dialogue turn returned error",
				zap.String("session_id", s.ID.String()),
				zap.String("gateway_error", reply.Error),
			)
		}
		fallback := script.Fallback()
		msg := s.appendBotLocked(fallback.Text, nil, false)
		if s.metrics != nil {
			s.metrics.RecordTurn("fallback")
		}
		return &TurnResult{
			Message:   msg,
			Fallback:  true,
			Phase:     s.lead.Phase,
			Qualified: s.lead.IsQualified,
		}, nil
	}

	extract.Merge(s.lead, reply.ExtractedData, s.logger)
	qualify.Apply(s.lead)

	next, phaseErr := domain.Advance(s.lead.Phase, reply.ConversationPhase)
	if phaseErr != nil {
		// Trust but validate: hold the previous phase and keep going.
		s.logger.Warn("holding conversation phase",
			zap.String("session_id", s.ID.String()),
			zap.String("proposed", reply.ConversationPhase),
			zap.Error(phaseErr),
		)
		if s.metrics != nil {
			s.metrics.PhaseHolds.Inc()
		}
	} else if next != s.lead.Phase {
		s.lead.Phase = next
		if s.metrics != nil {
			s.metrics.RecordPhaseTransition(string(next))
		}
	}

	msg := s.appendBotLocked(reply.Text, reply.SuggestedActions, false)
	if s.metrics != nil {
		s.metrics.RecordTurn("success")
	}

	return &TurnResult{
		Message:   msg,
		Phase:     s.lead.Phase,
		Qualified: s.lead.IsQualified,
		Terminal:  s.lead.Phase.IsTerminal(),
	}, nil
}

// BeginSubmit claims the submission guard. It returns true exactly once per
// session; the flag is set synchronously before any asynchronous persistence
// starts and is never rolled back, closing the race between the autosave
// timer and a final submission.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasSubmitted {
		return false
	}
	s.hasSubmitted = true
	return true
}

// HasSubmitted reports whether the capture guard has been claimed.
func (s *Session) HasSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSubmitted
}

// Capture snapshots the lead into its persistence shape. Numeric fields are
// translated to their display buckets here, at the persistence boundary.
func (s *Session) Capture(partial bool) *domain.LeadCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewLeadCapture(s.Key, s.lead, s.clk.NowUTC(), partial)
}

// InactiveFor returns the time elapsed since the last visitor action.
func (s *Session) InactiveFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.Since(s.lastActivity)
}

// HasEmail reports whether a contact email has been captured. Autosave never
// persists an unidentifiable partial lead.
func (s *Session) HasEmail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead.HasEmail()
}

// Email returns the captured email, if any.
func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead.Email
}

// Lead returns a copy of the current lead record.
func (s *Session) Lead() *domain.LeadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead.Clone()
}

// Transcript returns a copy of the rendered transcript.
func (s *Session) Transcript() []domain.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConversationMessage(nil), s.transcript...)
}

// Opened reports whether the widget has been opened.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// HasAutoOpened reports whether a trigger already fired for this session.
func (s *Session) HasAutoOpened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasAutoOpened
}

// Restart returns the conversation to the opener phase, the only backward
// transition the phase machine permits. Accumulated lead data survives; only
// the dialogue position resets. The opener prompt is re-emitted so the
// visitor sees where the conversation resumed.
func (s *Session) Restart() domain.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lead.Phase = domain.Restart()
	s.lastActivity = s.clk.Now()
	s.opened = true

	prompt := script.Opener()
	msg := s.appendBotLocked(prompt.Text, prompt.Options, prompt.MultiSelect)
	s.logger.Info("conversation restarted",
		zap.String("session_id", s.ID.String()),
	)
	return msg
}

// SeedLead pre-populates the lead from a prior capture when a returning
// visitor is recognized by email. Derived fields are left to Recompute.
func (s *Session) SeedLead(name, businessName, email, phone, trade string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.lead.Name = name
	}
	if businessName != "" {
		s.lead.BusinessName = businessName
	}
	if email != "" {
		s.lead.Email = email
	}
	if phone != "" {
		s.lead.Phone = phone
	}
	if trade != "" {
		s.lead.Trade = trade
	}
}

// appendBotLocked appends a bot message. Callers hold s.mu.
func (s *Session) appendBotLocked(text string, options []string, multiSelect bool) domain.ConversationMessage {
	s.nextMessageID++
	msg := domain.ConversationMessage{
		ID:          s.nextMessageID,
		Sender:      domain.SenderBot,
		Text:        text,
		Options:     append([]string(nil), options...),
		MultiSelect: multiSelect,
	}
	s.transcript = append(s.transcript, msg)
	s.history = append(s.history, domain.HistoryEntry{Role: "assistant", Content: text})
	return msg
}

// appendUserLocked appends a visitor message. Callers hold s.mu.
func (s *Session) appendUserLocked(text string) domain.ConversationMessage {
	s.nextMessageID++
	msg := domain.ConversationMessage{
		ID:     s.nextMessageID,
		Sender: domain.SenderUser,
		Text:   text,
	}
	s.transcript = append(s.transcript, msg)
	s.history = append(s.history, domain.HistoryEntry{Role: "user", Content: text})
	return msg
}
