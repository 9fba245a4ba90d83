// Package handler provides the HTTP surface of the lead engine: session
// lifecycle, dialogue turns, engagement events, capture submission, and the
// operational endpoints (health, leads, log level).
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/mwhitford/leadchat/internal/errors"
	"github.com/mwhitford/leadchat/internal/middleware"
)

// JSON writes a JSON response with the appropriate headers, echoing the
// request ID when one is present.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if reqID := middleware.GetRequestID(r.Context()); reqID != "" {
		w.Header().Set(middleware.RequestIDHeader, reqID)
	}
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error response in the API envelope. Typed application
// errors carry their own status code and wire shape; anything else is
// reported as an opaque internal error so storage and gateway details never
// leak to the page.
func Error(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error in request",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		appErr = apperrors.InternalError("internal server error", err)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
	}
	JSON(w, r, status, appErr.ToResponse())
}

// BadRequest writes a validation failure without requiring a typed error.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	JSON(w, r, http.StatusBadRequest, apperrors.ValidationFailed(message).ToResponse())
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.ValidationFailed("invalid request body")
	}
	return nil
}
