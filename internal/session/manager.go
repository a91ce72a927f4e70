package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/matthewbaird/lowcode-console/internal/relations"
	"github.com/matthewbaird/lowcode-console/internal/schema"
)

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	base context.Context
	gw   Gateway
	reg  *schema.Registry

	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration

	cron *cron.Cron
}

// NewManager creates a session manager. Session contexts derive from base,
// so cancelling base ends every session.
func NewManager(base context.Context, gw Gateway, reg *schema.Registry, maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		base:        base,
		gw:          gw,
		reg:         reg,
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// OpenRecord starts a record form for entity. An empty id opens a create
// form; otherwise the record is loaded and its relations preselected. The
// options of every relation shown on the form are loaded up front.
func (m *Manager) OpenRecord(ctx context.Context, entity, id string) (*Session, error) {
	sch, err := m.gw.GetEntity(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", entity, err)
	}
	if sch == nil {
		return nil, fmt.Errorf("loading entity %s: %w", entity, ErrNotFound)
	}

	s := newSession(m.base, KindRecord, sch.Name, m.gw, m.reg)
	s.schema = sch
	if id != "" {
		rec, err := m.gw.GetRecord(ctx, entity, id)
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("loading %s %s: %w", entity, id, err)
		}
		if rec == nil {
			s.cancel()
			return nil, fmt.Errorf("loading %s %s: %w", entity, id, ErrNotFound)
		}
		s.RecordID = id
		s.form = rec.Clone()
		s.selection = relations.ExtractRelationsFromRecord(rec)
	}
	s.options.Load(ctx, relations.GetRelationEntities(sch.Relations, s.selection)...)

	m.add(s)
	return s, nil
}

// OpenEntity starts an entity draft. An empty name opens a blank draft;
// otherwise the stored schema is copied into the draft.
func (m *Manager) OpenEntity(ctx context.Context, name string) (*Session, error) {
	draft := &schema.EntitySchema{Fields: []schema.FieldDefinition{}}
	if name != "" {
		stored, err := m.gw.GetEntity(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("loading entity %s: %w", name, err)
		}
		if stored == nil {
			return nil, fmt.Errorf("loading entity %s: %w", name, ErrNotFound)
		}
		draft = stored.Clone()
	}

	s := newSession(m.base, KindEntity, name, m.gw, m.reg)
	s.schema = draft
	m.add(s)
	return s, nil
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session and cancels its context. It reports whether the
// session existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.cancel()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.cancel()
	}
	return len(stale)
}

// StartCleanup schedules Cleanup with a cron expression such as "@every 1m".
func (m *Manager) StartCleanup(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := m.Cleanup(); n > 0 {
			slog.InfoContext(m.base, "session: removed stale sessions", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling session cleanup %q: %w", spec, err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop halts the cleanup schedule and ends every session.
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
	}
}
