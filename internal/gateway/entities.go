package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/matthewbaird/lowcode-console/internal/schema"
)

const (
	entitiesPath = "/api/gateway/entities"
	typesPath    = "/api/gateway/types"
	servicesPath = "/api/gateway/services"
)

// Service is a backend service produced by code generation.
type Service struct {
	Name       string `json:"name"`
	EntityName string `json:"entityName,omitempty"`
}

// ListEntities returns every entity schema the backend knows about.
func (c *Client) ListEntities(ctx context.Context) ([]schema.EntitySchema, error) {
	raw, err := c.do(ctx, "list entities", http.MethodGet, entitiesPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeEntities(raw)
}

// GetEntity returns one entity schema, or nil when the backend answers with
// an empty body.
func (c *Client) GetEntity(ctx context.Context, name string) (*schema.EntitySchema, error) {
	raw, err := c.do(ctx, "get entity", http.MethodGet, entitiesPath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	return decodeEntity(raw)
}

// CreateEntity creates an entity schema and returns the stored version.
func (c *Client) CreateEntity(ctx context.Context, s *schema.EntitySchema) (*schema.EntitySchema, error) {
	raw, err := c.do(ctx, "create entity", http.MethodPost, entitiesPath, s)
	if err != nil {
		return nil, err
	}
	return decodeEntity(raw)
}

// UpdateEntity replaces the schema stored under name.
func (c *Client) UpdateEntity(ctx context.Context, name string, s *schema.EntitySchema) (*schema.EntitySchema, error) {
	raw, err := c.do(ctx, "update entity", http.MethodPut, entitiesPath+"/"+url.PathEscape(name), s)
	if err != nil {
		return nil, err
	}
	return decodeEntity(raw)
}

// DeleteEntity removes an entity schema.
func (c *Client) DeleteEntity(ctx context.Context, name string) error {
	_, err := c.do(ctx, "delete entity", http.MethodDelete, entitiesPath+"/"+url.PathEscape(name), nil)
	return err
}

// StartGeneration asks the backend to generate code for an entity. Only the
// response status matters; the body is discarded.
func (c *Client) StartGeneration(ctx context.Context, name string) error {
	_, err := c.do(ctx, "start generation", http.MethodPost, entitiesPath+"/"+url.PathEscape(name)+"/generate", nil)
	return err
}

// ListTypes returns the field type catalog.
func (c *Client) ListTypes(ctx context.Context) ([]schema.FieldType, error) {
	raw, err := c.do(ctx, "list types", http.MethodGet, typesPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[schema.FieldType](raw)
}

// GetType returns one field type, or nil for an empty body.
func (c *Client) GetType(ctx context.Context, id string) (*schema.FieldType, error) {
	raw, err := c.do(ctx, "get type", http.MethodGet, typesPath+"/"+url.PathEscape(id), nil)
	if err != nil || raw == nil {
		return nil, err
	}
	var t *schema.FieldType
	if err := decode("get type", raw, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListServices returns the generated services.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	raw, err := c.do(ctx, "list services", http.MethodGet, servicesPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Service](raw)
}

// DeleteService removes a generated service by its service name.
func (c *Client) DeleteService(ctx context.Context, name string) error {
	_, err := c.do(ctx, "delete service", http.MethodDelete, servicesPath+"/"+url.PathEscape(name), nil)
	return err
}

// ServiceName is the name of the service generated for an entity.
func ServiceName(entity string) string {
	return entity + "Service"
}
