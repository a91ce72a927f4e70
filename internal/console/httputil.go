package console

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/matthewbaird/lowcode-console/internal/gateway"
	"github.com/matthewbaird/lowcode-console/internal/poller"
	"github.com/matthewbaird/lowcode-console/internal/session"
	"github.com/matthewbaird/lowcode-console/internal/validation"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Errors []string `json:"errors,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("console: writeJSON encode error", "err", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeValidation writes every validation message, joined for display and
// listed individually.
func writeValidation(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:  errs.Error(),
		Code:   "VALIDATION_ERROR",
		Errors: errs,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// splitIDs parses a comma separated id list, skipping blanks.
func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// errorToHTTP maps domain and gateway errors to HTTP responses. Gateway
// messages are passed through verbatim since they are meant for the user.
func errorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeValidation(w, verrs)
		return
	}
	if errors.Is(err, poller.ErrInProgress) {
		writeError(w, http.StatusConflict, "GENERATION_IN_PROGRESS", err.Error())
		return
	}
	if errors.Is(err, poller.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", err.Error())
		return
	}
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if errors.Is(err, session.ErrWrongKind) {
		writeError(w, http.StatusBadRequest, "WRONG_SESSION_KIND", err.Error())
		return
	}
	if gateway.IsTimeout(err) {
		writeError(w, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", gateway.Message(err, err.Error()))
		return
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		if gerr.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "NOT_FOUND", gerr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "GATEWAY_ERROR", gerr.Message)
		return
	}
	slog.ErrorContext(r.Context(), "console: internal error", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
