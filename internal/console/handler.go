// Package console serves the admin console API: entity and record management
// through the gateway, editing sessions, generation tracking and a websocket
// stream of generation events.
package console

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/lowcode-console/internal/activity"
	"github.com/matthewbaird/lowcode-console/internal/eventbus"
	"github.com/matthewbaird/lowcode-console/internal/gateway"
	"github.com/matthewbaird/lowcode-console/internal/poller"
	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/matthewbaird/lowcode-console/internal/session"
)

// Gateway is the part of the gateway client the console uses.
type Gateway interface {
	session.Gateway
	poller.Gateway
	DeleteEntity(ctx context.Context, name string) error
	ListTypes(ctx context.Context) ([]schema.FieldType, error)
	ListServices(ctx context.Context) ([]gateway.Service, error)
	DeleteService(ctx context.Context, name string) error
	DeleteRecord(ctx context.Context, entity, id string) error
}

// Deps holds everything the console handlers need.
type Deps struct {
	// Base scopes generation runs not tied to an editing session. It should
	// live as long as the server.
	Base     context.Context
	Gateway  Gateway
	Registry *schema.Registry
	// Poller tracks generation runs. When nil, NewHandler creates one on
	// Gateway with default settings.
	Poller      *poller.Poller
	Sessions    *session.Manager
	Journal     activity.Store
	Broadcaster *eventbus.Broadcaster
}

// Handler serves the console API.
type Handler struct {
	base     context.Context
	gw       Gateway
	reg      *schema.Registry
	poller   *poller.Poller
	sessions *session.Manager
	journal  activity.Store
	events   *eventbus.Broadcaster

	mu        sync.Mutex
	refreshes map[int]chan []schema.EntitySchema
	nextConn  int
}

// NewHandler creates a console handler.
func NewHandler(d Deps) *Handler {
	base := d.Base
	if base == nil {
		base = context.Background()
	}
	reg := d.Registry
	if reg == nil {
		reg = schema.NewRegistry()
	}
	events := d.Broadcaster
	if events == nil {
		events = eventbus.NewBroadcaster(0)
	}
	runs := d.Poller
	if runs == nil {
		runs = poller.New(d.Gateway)
	}
	return &Handler{
		base:      base,
		gw:        d.Gateway,
		reg:       reg,
		poller:    runs,
		sessions:  d.Sessions,
		journal:   d.Journal,
		events:    events,
		refreshes: make(map[int]chan []schema.EntitySchema),
	}
}

// SetPoller replaces the generation poller. It exists because the poller's
// refresh callback is the handler's own Refresh; call it before serving.
// A nil p is ignored.
func (h *Handler) SetPoller(p *poller.Poller) {
	if p != nil {
		h.poller = p
	}
}

// RegisterRoutes registers the console HTTP and WebSocket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/console", func(r chi.Router) {
		r.Get("/ws", h.ServeWS)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", h.ListEntities)
			r.Post("/", h.CreateEntity)
			r.Get("/{name}", h.GetEntity)
			r.Put("/{name}", h.UpdateEntity)
			r.Delete("/{name}", h.DeleteEntity)
			r.Post("/{name}/generate", h.StartGeneration)
			r.Get("/{name}/generation", h.GetGeneration)
			r.Delete("/{name}/generation", h.CancelGeneration)
		})

		r.Get("/types", h.ListTypes)
		r.Get("/services", h.ListServices)
		r.Delete("/services/{entity}", h.DeleteService)
		r.Post("/demo", h.CreateDemo)
		r.Get("/generations", h.ListGenerations)
		r.Get("/schema", h.EntityJSONSchema)

		r.Get("/records/{entity}", h.ListRecords)
		r.Delete("/records/{entity}/{id}", h.DeleteRecord)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.Get("/{id}", h.GetSession)
			r.Delete("/{id}", h.CloseSession)
			r.Patch("/{id}/fields", h.UpdateSessionFields)
			r.Put("/{id}/relations/{entity}", h.SetSessionRelation)
			r.Delete("/{id}/relations/{entity}", h.RemoveSessionRelation)
			r.Post("/{id}/submit", h.SubmitSession)
		})
	})
}

// Refresh pushes a reloaded entity list to every connected websocket. It is
// the poller's refresh callback.
func (h *Handler) Refresh(_ context.Context, entities []schema.EntitySchema) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.refreshes {
		// Only the newest list matters.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- entities:
		default:
		}
	}
}

func (h *Handler) listenRefresh() (<-chan []schema.EntitySchema, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextConn
	h.nextConn++
	ch := make(chan []schema.EntitySchema, 1)
	h.refreshes[id] = ch
	return ch, func() {
		h.mu.Lock()
		delete(h.refreshes, id)
		h.mu.Unlock()
	}
}
