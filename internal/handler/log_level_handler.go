package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/logging"
)

// LogLevelHandler handles runtime log level adjustment.
type LogLevelHandler struct {
	logger *logging.Logger
}

// NewLogLevelHandler creates a handler for log level management.
func NewLogLevelHandler(logger *logging.Logger) *LogLevelHandler {
	return &LogLevelHandler{logger: logger}
}

// LogLevelResponse is the response for log level queries.
type LogLevelResponse struct {
	Level           string   `json:"level"`
	AvailableLevels []string `json:"available_levels,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// LogLevelRequest is the request body for changing log level.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// GetLevel handles GET requests to return the current log level.
func (h *LogLevelHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, LogLevelResponse{
		Level:           h.logger.GetLevel(),
		AvailableLevels: []string{"debug", "info", "warn", "error"},
	})
}

// SetLevel handles PUT/POST requests to change the log level. The level can
// arrive as a query parameter or a JSON body.
func (h *LogLevelHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	levelStr := r.URL.Query().Get("level")

	if levelStr == "" {
		var req LogLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			levelStr = req.Level
		}
	}

	if levelStr == "" {
		BadRequest(w, r, "level parameter is required")
		return
	}

	previous := h.logger.GetLevel()
	if err := h.logger.SetLevel(levelStr); err != nil {
		BadRequest(w, r, err.Error())
		return
	}

	h.logger.Info("log level changed",
		zap.String("previous_level", previous),
		zap.String("new_level", h.logger.GetLevel()),
	)

	JSON(w, r, http.StatusOK, LogLevelResponse{
		Level:   h.logger.GetLevel(),
		Message: fmt.Sprintf("log level changed from %s to %s", previous, h.logger.GetLevel()),
	})
}

// ServeHTTP implements http.Handler for the log level endpoint.
func (h *LogLevelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetLevel(w, r)
	case http.MethodPut, http.MethodPost:
		h.SetLevel(w, r)
	default:
		JSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}
