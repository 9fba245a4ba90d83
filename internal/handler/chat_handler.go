package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/clock"
	"github.com/mwhitford/leadchat/internal/domain"
	"github.com/mwhitford/leadchat/internal/engage"
	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/session"
)

// ChatHandler handles the conversation API: session lifecycle, dialogue
// turns, engagement events, and final submission. Each session gets its own
// engagement controller, armed at creation and torn down when the session
// ends or is evicted.
type ChatHandler struct {
	manager   *session.Manager
	engageCfg engage.Config
	clk       clock.Clock
	logger    *zap.Logger

	mu          sync.Mutex
	controllers map[uuid.UUID]*engage.Controller
}

// ChatHandlerConfig holds configuration for ChatHandler.
type ChatHandlerConfig struct {
	Manager *session.Manager
	Engage  engage.Config
	Clock   clock.Clock
	Logger  *zap.Logger
}

// NewChatHandler creates a ChatHandler with all required dependencies.
func NewChatHandler(cfg ChatHandlerConfig) *ChatHandler {
	if cfg.Logger == nil {
		panic("logger is required")
	}
	return &ChatHandler{
		manager:     cfg.Manager,
		engageCfg:   cfg.Engage,
		clk:         cfg.Clock,
		logger:      cfg.Logger,
		controllers: make(map[uuid.UUID]*engage.Controller),
	}
}

// RegisterRoutes registers the conversation routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{sessionID}", h.GetSession)
		r.Post("/{sessionID}/messages", h.PostMessage)
		r.Post("/{sessionID}/events", h.PostEvent)
		r.Post("/{sessionID}/submit", h.Submit)
	})
}

// CreateSession handles POST /api/v1/sessions. The body is optional; an
// email identifies a returning visitor.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			Error(w, r, err, h.logger)
			return
		}
	}

	sess, err := h.manager.Create(r.Context(), req.Email)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	// The controller outlives the request, so it runs on the background
	// context and is stopped explicitly when the session ends.
	ctrl := engage.NewController(h.engageCfg, sess, h.clk, h.logger,
		func(trigger session.OpenTrigger, msg *domain.ConversationMessage) {
			h.logger.Info("widget auto-opened",
				zap.String("session_id", sess.ID.String()),
				zap.String("trigger", string(trigger)),
			)
		})
	h.mu.Lock()
	h.controllers[sess.ID] = ctrl
	h.mu.Unlock()
	ctrl.Start(context.Background())

	JSON(w, r, http.StatusCreated, h.sessionResponse(sess))
}

// GetSession handles GET /api/v1/sessions/{sessionID}. The widget polls this
// to pick up trigger-driven opener messages.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lookup(r)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}
	JSON(w, r, http.StatusOK, h.sessionResponse(sess))
}

// PostMessage handles POST /api/v1/sessions/{sessionID}/messages. It runs one
// dialogue turn; a concurrent turn on the same session is rejected with a
// conflict rather than queued.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lookup(r)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	var req MessageRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, r, err, h.logger)
		return
	}
	if req.Text == "" {
		Error(w, r, apperrors.MissingField("text"), h.logger)
		return
	}

	result, err := sess.HandleTurn(r.Context(), req.Text)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	if result.Terminal {
		h.finishSession(r.Context(), sess)
	}

	JSON(w, r, http.StatusOK, TurnResponse{
		Message:   result.Message,
		Fallback:  result.Fallback,
		Phase:     string(result.Phase),
		Qualified: result.Qualified,
		Terminal:  result.Terminal,
	})
}

// PostEvent handles POST /api/v1/sessions/{sessionID}/events: scroll-depth
// samples, manual opens, and plain activity pings.
func (h *ChatHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lookup(r)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	var req EventRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, r, err, h.logger)
		return
	}

	// Every event is a visitor action and resets the inactivity clock.
	sess.RecordActivity()

	switch req.Type {
	case EventScroll:
		if req.DepthPx < 0 {
			Error(w, r, apperrors.ValidationFailed("depth_px must not be negative"), h.logger)
			return
		}
		if ctrl := h.controller(sess.ID); ctrl != nil {
			ctrl.ReportScroll(req.DepthPx)
		}
		JSON(w, r, http.StatusOK, EventResponse{Opened: sess.Opened()})
	case EventOpen:
		// Reopening returns no new message; the widget is open either way.
		msg, _ := sess.Open(session.OpenTriggerManual)
		JSON(w, r, http.StatusOK, EventResponse{Opened: true, Message: msg})
	case EventActivity:
		JSON(w, r, http.StatusOK, EventResponse{Opened: sess.Opened()})
	case EventRestart:
		msg := sess.Restart()
		JSON(w, r, http.StatusOK, EventResponse{Opened: true, Message: &msg})
	default:
		Error(w, r, apperrors.ValidationFailed("unknown event type"), h.logger)
	}
}

// Submit handles POST /api/v1/sessions/{sessionID}/submit: the explicit final
// capture. A conflict means the capture guard was already claimed, either by
// a prior submit or by the autosave timer.
func (h *ChatHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.lookup(r)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}

	capture, err := h.manager.Submit(r.Context(), sess)
	if err != nil {
		Error(w, r, err, h.logger)
		return
	}
	h.stopController(sess.ID)

	JSON(w, r, http.StatusCreated, SubmitResponse{
		CaptureID:  capture.ID.String(),
		Qualified:  capture.IsQualified,
		CapturedAt: capture.CapturedAt,
	})
}

// StopEngagement tears down the engagement controller for a session. Wired
// as the manager's eviction hook.
func (h *ChatHandler) StopEngagement(sess *session.Session) {
	h.stopController(sess.ID)
}

// Shutdown stops all live controllers.
func (h *ChatHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	ctrls := make([]*engage.Controller, 0, len(h.controllers))
	for id, ctrl := range h.controllers {
		ctrls = append(ctrls, ctrl)
		delete(h.controllers, id)
	}
	h.mu.Unlock()
	for _, ctrl := range ctrls {
		ctrl.Stop()
	}
	return nil
}

// finishSession performs the final capture when a conversation reaches a
// terminal phase. A conflict here means autosave already claimed the guard;
// that is the guard doing its job, not an error the visitor should see.
func (h *ChatHandler) finishSession(ctx context.Context, sess *session.Session) {
	if _, err := h.manager.Submit(ctx, sess); err != nil {
		if apperrors.GetCode(err) == apperrors.CodeConflict {
			h.logger.Info("final capture skipped, guard already claimed",
				zap.String("session_id", sess.ID.String()),
			)
		} else {
			h.logger.Error("final capture failed",
				zap.String("session_id", sess.ID.String()),
				zap.Error(err),
			)
		}
	}
	h.stopController(sess.ID)
}

func (h *ChatHandler) lookup(r *http.Request) (*session.Session, error) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.ValidationFailed("invalid session id")
	}
	return h.manager.Get(id)
}

func (h *ChatHandler) controller(id uuid.UUID) *engage.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.controllers[id]
}

func (h *ChatHandler) stopController(id uuid.UUID) {
	h.mu.Lock()
	ctrl := h.controllers[id]
	delete(h.controllers, id)
	h.mu.Unlock()
	if ctrl != nil {
		ctrl.Stop()
	}
}

func (h *ChatHandler) sessionResponse(sess *session.Session) SessionResponse {
	lead := sess.Lead()
	return SessionResponse{
		SessionID: sess.ID.String(),
		Opened:    sess.Opened(),
		Phase:     string(lead.Phase),
		Qualified: lead.IsQualified,
		Messages:  sess.Transcript(),
	}
}
