package console

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/lowcode-console/internal/session"
)

type openSessionRequest struct {
	Kind     session.Kind `json:"kind"`
	Entity   string       `json:"entity"`
	RecordID string       `json:"recordId"`
}

type relationRequest struct {
	IDs []string `json:"ids"`
}

// OpenSession handles POST /api/console/sessions.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	var (
		sess *session.Session
		err  error
	)
	switch req.Kind {
	case session.KindRecord:
		if req.Entity == "" {
			writeError(w, http.StatusBadRequest, "MISSING_ENTITY", "entity is required for record sessions")
			return
		}
		sess, err = h.sessions.OpenRecord(r.Context(), req.Entity, req.RecordID)
	case session.KindEntity:
		sess, err = h.sessions.OpenEntity(r.Context(), req.Entity)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_KIND", "kind must be record or entity")
		return
	}
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// lookupSession resolves the {id} parameter, writing a 404 when the session
// is gone.
func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess := h.sessions.Get(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+id)
		return nil, false
	}
	sess.Touch()
	return sess, true
}

// GetSession handles GET /api/console/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// CloseSession handles DELETE /api/console/sessions/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.sessions.Remove(id) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSessionFields handles PATCH /api/console/sessions/{id}/fields. Record
// sessions take a map of field values; entity sessions take a partial
// entity document.
func (h *Handler) UpdateSessionFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var err error
	if sess.Kind == session.KindEntity {
		var body []byte
		body, err = io.ReadAll(r.Body)
		r.Body.Close()
		if err == nil {
			err = sess.ApplyDraft(body)
		}
	} else {
		var values map[string]any
		if err = decodeJSON(r, &values); err == nil {
			err = sess.SetFields(values)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// SetSessionRelation handles PUT /api/console/sessions/{id}/relations/{entity}.
func (h *Handler) SetSessionRelation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req relationRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
	}
	if err := sess.SetRelation(r.Context(), chi.URLParam(r, "entity"), req.IDs); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// RemoveSessionRelation handles DELETE /api/console/sessions/{id}/relations/{entity}.
func (h *Handler) RemoveSessionRelation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	sess.RemoveRelation(chi.URLParam(r, "entity"))
	writeJSON(w, http.StatusOK, sess.View())
}

// SubmitSession handles POST /api/console/sessions/{id}/submit. A successful
// submit closes the session.
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	res, err := sess.Submit(r.Context())
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	h.sessions.Remove(sess.ID)

	status := http.StatusOK
	if (sess.Kind == session.KindRecord && sess.RecordID == "") || (sess.Kind == session.KindEntity && sess.Entity == "") {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
