package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/lowcode-console/internal/record"
)

// RecordView is a list row: the record plus the labels shown for it.
type RecordView struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Label  string        `json:"label"`
	Record record.Record `json:"record"`
}

type recordsResponse struct {
	Entity     string       `json:"entity"`
	PluralName string       `json:"pluralName"`
	Records    []RecordView `json:"records"`
}

// ListRecords handles GET /api/console/records/{entity}. An ids query
// parameter (comma separated) restricts the list.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	sch, err := h.gw.GetEntity(r.Context(), entity)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	if sch == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "entity not found: "+entity)
		return
	}

	recs, err := h.gw.ListRecords(r.Context(), sch.Name, splitIDs(r.URL.Query().Get("ids"))...)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	out := recordsResponse{
		Entity:     sch.Name,
		PluralName: sch.DisplayPlural(),
		Records:    make([]RecordView, 0, len(recs)),
	}
	for _, rec := range recs {
		out.Records = append(out.Records, RecordView{
			ID:     rec.ID(),
			Name:   record.DisplayName(rec),
			Label:  record.Label(rec, sch),
			Record: rec,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteRecord handles DELETE /api/console/records/{entity}/{id}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.DeleteRecord(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "id")); err != nil {
		errorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
