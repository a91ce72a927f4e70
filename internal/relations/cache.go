package relations

import (
	"context"
	"log/slog"
	"sync"

	"github.com/matthewbaird/lowcode-console/internal/record"
)

// Option is a candidate record offered by a relation picker.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecordLister fetches the records of a generated entity.
type RecordLister interface {
	ListRecords(ctx context.Context, entity string, ids ...string) ([]record.Record, error)
}

// OptionsCache holds relation candidates per canonical key for the lifetime
// of one editing session. Entries are filled lazily and never refreshed; a
// failed fetch caches an empty list.
type OptionsCache struct {
	lister RecordLister

	mu      sync.Mutex
	options map[string][]Option
}

// NewOptionsCache creates an empty cache backed by lister.
func NewOptionsCache(lister RecordLister) *OptionsCache {
	return &OptionsCache{lister: lister, options: make(map[string][]Option)}
}

// Load fetches candidates for every entity not cached yet.
func (c *OptionsCache) Load(ctx context.Context, entities ...string) {
	for _, entity := range entities {
		key := NormalizeKey(entity)
		if key == "" || c.has(key) {
			continue
		}
		opts := []Option{}
		recs, err := c.lister.ListRecords(ctx, entity)
		if err != nil {
			slog.WarnContext(ctx, "relations: loading options failed", "entity", entity, "err", err)
		} else {
			for _, r := range recs {
				opts = append(opts, Option{ID: r.ID(), Name: record.DisplayName(r)})
			}
		}
		c.mu.Lock()
		if _, ok := c.options[key]; !ok {
			c.options[key] = opts
		}
		c.mu.Unlock()
	}
}

// Options returns the cached candidates for an entity, or an empty list.
func (c *OptionsCache) Options(entity string) []Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GetByKey(c.options, entity)
}

// Snapshot returns a copy of every cached entry.
func (c *OptionsCache) Snapshot() map[string][]Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]Option, len(c.options))
	for k, v := range c.options {
		out[k] = append([]Option(nil), v...)
	}
	return out
}

func (c *OptionsCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.options[key]
	return ok
}
