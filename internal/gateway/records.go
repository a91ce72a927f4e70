package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/matthewbaird/lowcode-console/internal/record"
)

// recordsPath is the collection path of a generated entity.
func recordsPath(entity string) string {
	return "/api/gateway/" + url.PathEscape(strings.ToLower(entity))
}

// ListRecords returns the records of a generated entity, restricted to ids
// when any are given.
func (c *Client) ListRecords(ctx context.Context, entity string, ids ...string) ([]record.Record, error) {
	path := recordsPath(entity)
	if len(ids) > 0 {
		path += "?ids=" + url.QueryEscape(strings.Join(ids, ","))
	}
	raw, err := c.do(ctx, "list records", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[record.Record](raw)
}

// GetRecord returns one record, or nil for an empty body.
func (c *Client) GetRecord(ctx context.Context, entity, id string) (record.Record, error) {
	raw, err := c.do(ctx, "get record", http.MethodGet, recordsPath(entity)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var r record.Record
	if err := decode("get record", raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRecord posts a prepared payload and returns the stored record.
func (c *Client) CreateRecord(ctx context.Context, entity string, payload map[string]any) (record.Record, error) {
	raw, err := c.do(ctx, "create record", http.MethodPost, recordsPath(entity), payload)
	if err != nil {
		return nil, err
	}
	var r record.Record
	if err := decode("create record", raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRecord replaces a record with a prepared payload.
func (c *Client) UpdateRecord(ctx context.Context, entity, id string, payload map[string]any) (record.Record, error) {
	raw, err := c.do(ctx, "update record", http.MethodPut, recordsPath(entity)+"/"+url.PathEscape(id), payload)
	if err != nil {
		return nil, err
	}
	var r record.Record
	if err := decode("update record", raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, entity, id string) error {
	_, err := c.do(ctx, "delete record", http.MethodDelete, recordsPath(entity)+"/"+url.PathEscape(id), nil)
	return err
}
