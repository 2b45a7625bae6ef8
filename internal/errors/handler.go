package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"retailpulse/internal/infrastructure"
)

// ErrorHandler renders errors as structured JSON responses, logging
// server-side failures.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError renders err to the client. Plain errors become opaque 500
// responses; *APIError values render with their own status and code.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	apiErr, ok := err.(*APIError)
	if !ok {
		h.logger.ErrorContext(ctx, "unhandled error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path))
		apiErr = ErrInternalServer
	}

	if apiErr.StatusCode >= 500 {
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("error_code", apiErr.ErrorCode),
			slog.String("message", apiErr.Message),
			slog.String("path", r.URL.Path))
	}

	response := struct {
		*APIError
		TraceID string `json:"trace_id,omitempty"`
	}{
		APIError: apiErr,
		TraceID:  infrastructure.GetTraceID(ctx),
	}

	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, response)
}

// NotFound is a chi NotFoundHandler rendering the standard 404 shape.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NotFoundError(r.URL.Path))
}

// MethodNotAllowed is a chi MethodNotAllowedHandler.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"))
}
