package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"github.com/matthewbaird/lowcode-console/internal/activity"
	"github.com/matthewbaird/lowcode-console/internal/gateway"
	"github.com/matthewbaird/lowcode-console/internal/poller"
	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/matthewbaird/lowcode-console/internal/seed"
	"github.com/matthewbaird/lowcode-console/internal/validation"
)

// EntityView is an entity with its generation status.
type EntityView struct {
	schema.EntitySchema
	Generating bool   `json:"generating"`
	Generation string `json:"generation,omitempty"`
}

// ListEntities handles GET /api/console/entities.
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := h.gw.ListEntities(r.Context())
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := make([]EntityView, 0, len(entities))
	for _, e := range entities {
		v := EntityView{EntitySchema: e}
		if st := h.poller.State(e.Name); st != poller.Idle {
			v.Generation = string(st)
			v.Generating = !st.Terminal()
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEntity handles GET /api/console/entities/{name}.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := h.gw.GetEntity(r.Context(), name)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "entity not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// decodeEntity reads and validates an entity body. It writes the error
// response itself and reports whether the caller may continue.
func (h *Handler) decodeEntity(w http.ResponseWriter, r *http.Request) (*schema.EntitySchema, bool) {
	var e schema.EntitySchema
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return nil, false
	}
	if errs := validation.ValidateDraft(&e, h.reg); len(errs) > 0 {
		writeValidation(w, errs)
		return nil, false
	}
	return &e, true
}

// CreateEntity handles POST /api/console/entities.
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decodeEntity(w, r)
	if !ok {
		return
	}
	saved, err := h.gw.CreateEntity(r.Context(), e)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if saved == nil {
		saved = e
	}
	writeJSON(w, http.StatusCreated, saved)
}

// UpdateEntity handles PUT /api/console/entities/{name}.
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decodeEntity(w, r)
	if !ok {
		return
	}
	saved, err := h.gw.UpdateEntity(r.Context(), chi.URLParam(r, "name"), e)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if saved == nil {
		saved = e
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteEntity handles DELETE /api/console/entities/{name}.
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteEntity(r.Context(), chi.URLParam(r, "name")); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartGeneration handles POST /api/console/entities/{name}/generate. The
// run is scoped to the editing session named by ?session= when given, so
// closing the session stops polling; otherwise it lives as long as the server.
func (h *Handler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := h.base
	if id := r.URL.Query().Get("session"); id != "" {
		sess := h.sessions.Get(id)
		if sess == nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found: "+id)
			return
		}
		ctx = sess.Context()
	}

	job, err := h.poller.Start(ctx, name)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job.Result())
}

// GetGeneration handles GET /api/console/entities/{name}/generation.
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job := h.poller.Job(name)
	if job == nil {
		writeJSON(w, http.StatusOK, poller.Result{Entity: name, State: poller.Idle})
		return
	}
	writeJSON(w, http.StatusOK, job.Result())
}

// CancelGeneration handles DELETE /api/console/entities/{name}/generation.
func (h *Handler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.poller.Cancel(name) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no generation in progress for "+name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTypes handles GET /api/console/types. The answer also refreshes the
// registry used to validate drafts.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.gw.ListTypes(r.Context())
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	h.reg.Replace(types)
	writeJSON(w, http.StatusOK, h.reg.Types())
}

// ListServices handles GET /api/console/services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.gw.ListServices(r.Context())
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if services == nil {
		services = []gateway.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}

// DeleteService handles DELETE /api/console/services/{entity}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	name := gateway.ServiceName(chi.URLParam(r, "entity"))
	if err := h.gw.DeleteService(r.Context(), name); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDemo handles POST /api/console/demo.
func (h *Handler) CreateDemo(w http.ResponseWriter, r *http.Request) {
	saved, err := seed.CreateTestEntity(r.Context(), h.gw)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// generationsResponse is the journal page returned by ListGenerations.
type generationsResponse struct {
	Runs       []activity.Run   `json:"runs"`
	Events     []activity.Entry `json:"events"`
	NextCursor string           `json:"nextCursor,omitempty"`
	Total      int              `json:"total"`
}

// ListGenerations handles GET /api/console/generations. Filters: entity,
// run, cursor.
func (h *Handler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, generationsResponse{Runs: []activity.Run{}, Events: []activity.Entry{}})
		return
	}
	q := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	opts.Entity = q.Get("entity")
	opts.RunID = q.Get("run")
	opts.Cursor = q.Get("cursor")

	entries, next, total, err := h.journal.Query(r.Context(), opts)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	runs := activity.Runs(entries)
	if runs == nil {
		runs = []activity.Run{}
	}
	writeJSON(w, http.StatusOK, generationsResponse{
		Runs:       runs,
		Events:     entries,
		NextCursor: next,
		Total:      total,
	})
}

// EntityJSONSchema handles GET /api/console/schema, describing the entity
// document accepted by the entity endpoints.
func (h *Handler) EntityJSONSchema(w http.ResponseWriter, r *http.Request) {
	ref := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	writeJSON(w, http.StatusOK, ref.Reflect(&schema.EntitySchema{}))
}
