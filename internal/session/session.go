// Package session manages editing sessions. A record session owns the form
// data, relation selection and relation options of one create/edit form; an
// entity session owns a schema draft. Each session carries a context that is
// cancelled when the session ends.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/lowcode-console/internal/record"
	"github.com/matthewbaird/lowcode-console/internal/relations"
	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/matthewbaird/lowcode-console/internal/validation"
)

// Kind is what a session edits.
type Kind string

const (
	KindRecord Kind = "record"
	KindEntity Kind = "entity"
)

var (
	ErrNotFound  = errors.New("session: not found")
	ErrWrongKind = errors.New("session: operation not supported for this session kind")
)

// Gateway is the part of the gateway client sessions need.
type Gateway interface {
	relations.RecordLister
	GetEntity(ctx context.Context, name string) (*schema.EntitySchema, error)
	GetRecord(ctx context.Context, entity, id string) (record.Record, error)
	CreateRecord(ctx context.Context, entity string, payload map[string]any) (record.Record, error)
	UpdateRecord(ctx context.Context, entity, id string, payload map[string]any) (record.Record, error)
	CreateEntity(ctx context.Context, s *schema.EntitySchema) (*schema.EntitySchema, error)
	UpdateEntity(ctx context.Context, name string, s *schema.EntitySchema) (*schema.EntitySchema, error)
}

// Session holds the state of one editing form.
type Session struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Entity   string `json:"entity"`
	RecordID string `json:"recordId,omitempty"`

	gw     Gateway
	reg    *schema.Registry
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	schema       *schema.EntitySchema // entity schema, or the draft for entity sessions
	form         record.Record
	selection    relations.Selection
	options      *relations.OptionsCache
	createdAt    time.Time
	lastActiveAt time.Time
}

func newSession(parent context.Context, kind Kind, entity string, gw Gateway, reg *schema.Registry) *Session {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Kind:         kind,
		Entity:       entity,
		gw:           gw,
		reg:          reg,
		ctx:          ctx,
		cancel:       cancel,
		form:         record.Record{},
		selection:    relations.Selection{},
		options:      relations.NewOptionsCache(gw),
		createdAt:    now,
		lastActiveAt: now,
	}
}

// Context is cancelled when the session is removed. Work started on behalf
// of the session, such as generation polling, should be scoped to it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.createdAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActiveAt) > timeout
}

// SetFields stores form values. Keys are matched to existing values
// case-insensitively.
func (s *Session) SetFields(values map[string]any) error {
	if s.Kind != KindRecord {
		return ErrWrongKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.form.Set(k, v)
	}
	s.lastActiveAt = time.Now()
	return nil
}

// ApplyDraft merges a JSON patch of entity attributes into the draft. Keys
// absent from the patch keep their value; arrays present replace the whole list.
func (s *Session) ApplyDraft(patch []byte) error {
	if s.Kind != KindEntity {
		return ErrWrongKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil {
		return fmt.Errorf("decoding draft: %w", err)
	}
	draft := s.schema.Clone()
	// Lists are replaced, never merged element by element.
	if _, ok := keys["fields"]; ok {
		draft.Fields = nil
	}
	if _, ok := keys["relations"]; ok {
		draft.Relations = nil
	}
	if err := json.Unmarshal(patch, draft); err != nil {
		return fmt.Errorf("decoding draft: %w", err)
	}
	if draft.Fields == nil {
		draft.Fields = []schema.FieldDefinition{}
	}
	s.schema = draft
	s.lastActiveAt = time.Now()
	return nil
}

// SetRelation selects related records on a record session, loading that
// relation's options on first use. On an entity session it declares a
// relation to entity instead; ids are ignored.
func (s *Session) SetRelation(ctx context.Context, entity string, ids []string) error {
	if s.Kind == KindEntity {
		s.mu.Lock()
		defer s.mu.Unlock()
		validation.AddRelation(s.schema, entity)
		s.lastActiveAt = time.Now()
		return nil
	}
	s.options.Load(ctx, entity)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Set(entity, ids)
	s.lastActiveAt = time.Now()
	return nil
}

// RemoveRelation clears a selection, or drops a declared relation from a draft.
func (s *Session) RemoveRelation(entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
	if s.Kind == KindRecord {
		s.selection.Set(entity, nil)
		return
	}
	for i, rel := range s.schema.Relations {
		if relations.Equal(rel.Entity, entity) {
			validation.RemoveRelation(s.schema, i)
			return
		}
	}
}

// Validate runs the record validator on the form, or the draft checks on an
// entity draft.
func (s *Session) Validate() validation.Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() validation.Errors {
	if s.Kind == KindEntity {
		return validation.ValidateDraft(s.schema, s.reg)
	}
	return validation.ValidateRecord(s.form, s.schema)
}

// Payload builds the write payload of a record session: coerced field values
// plus the relation payload when there is one.
func (s *Session) Payload() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

func (s *Session) payloadLocked() map[string]any {
	data := record.PrepareRecordForAPI(s.form, s.schema)
	return record.WithRelations(data, relations.BuildRelationsForAPI(s.selection, s.schema.Relations))
}

// Result is what a successful submit stored.
type Result struct {
	Record record.Record        `json:"record,omitempty"`
	Entity *schema.EntitySchema `json:"entity,omitempty"`
}

// Submit validates the session and, only when valid, writes it through the
// gateway: a create when the session was opened without an existing
// record or entity, an update otherwise. Validation failures are returned
// as validation.Errors.
func (s *Session) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if errs := s.validateLocked(); len(errs) > 0 {
		s.mu.Unlock()
		return nil, errs
	}
	s.lastActiveAt = time.Now()

	if s.Kind == KindEntity {
		draft := s.schema.Clone()
		s.mu.Unlock()
		return s.submitEntity(ctx, draft)
	}

	payload := s.payloadLocked()
	entity, id := s.Entity, s.RecordID
	s.mu.Unlock()

	var (
		saved record.Record
		err   error
	)
	if id == "" {
		saved, err = s.gw.CreateRecord(ctx, entity, payload)
	} else {
		saved, err = s.gw.UpdateRecord(ctx, entity, id, payload)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Record: saved}, nil
}

func (s *Session) submitEntity(ctx context.Context, draft *schema.EntitySchema) (*Result, error) {
	var (
		saved *schema.EntitySchema
		err   error
	)
	if s.Entity == "" {
		saved, err = s.gw.CreateEntity(ctx, draft)
	} else {
		saved, err = s.gw.UpdateEntity(ctx, s.Entity, draft)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Entity: saved}, nil
}
