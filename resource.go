package postgrid

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/printmail/postgrid-go/internal/api"
	"github.com/printmail/postgrid-go/internal/apierrors"
)

// List is one page of a collection.
type List[T any] struct {
	Object     string `json:"object" validate:"eq=list"`
	Limit      int    `json:"limit" validate:"gte=0"`
	Skip       int    `json:"skip" validate:"gte=0"`
	TotalCount int    `json:"totalCount" validate:"gte=0"`
	Data       []T    `json:"data" validate:"dive"`
}

// HasMore reports whether items exist beyond this page.
func (l *List[T]) HasMore() bool {
	return l.Skip+len(l.Data) < l.TotalCount
}

// ListParams selects a page of a collection.
type ListParams struct {
	// Skip is the number of items to skip.
	Skip int
	// Limit is the page size. Zero uses the API default.
	Limit int
	// Search filters items by free text.
	Search string
}

func (p *ListParams) values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	if p.Skip > 0 {
		v.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// Deleted is returned by delete operations.
type Deleted struct {
	ID      string `json:"id" validate:"required"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// resourcePath joins a collection and escaped ID segments.
func resourcePath(collection string, segments ...string) string {
	var b strings.Builder
	b.WriteString(collection)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func requireID(resource, id string) error {
	if strings.TrimSpace(id) == "" {
		return apierrors.Validation(resource+" ID is required", []apierrors.FieldError{{
			Field:   "id",
			Code:    "required",
			Message: resource + " ID must not be empty",
		}}, nil)
	}
	return nil
}

func call[T any](ctx context.Context, c *api.Client, method, path string, body any) (*T, error) {
	var out T
	if _, err := c.Request(ctx, &api.Request{Method: method, Path: path, Body: body, Result: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func get[T any](ctx context.Context, c *api.Client, resource, collection, id string) (*T, error) {
	if err := requireID(resource, id); err != nil {
		return nil, err
	}
	return call[T](ctx, c, http.MethodGet, resourcePath(collection, id), nil)
}

func list[T any](ctx context.Context, c *api.Client, path string, params *ListParams) (*List[T], error) {
	var out List[T]
	_, err := c.Request(ctx, &api.Request{
		Method: http.MethodGet,
		Path:   path,
		Params: params.values(),
		Result: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func remove(ctx context.Context, c *api.Client, resource, collection, id string) (*Deleted, error) {
	if err := requireID(resource, id); err != nil {
		return nil, err
	}
	return call[Deleted](ctx, c, http.MethodDelete, resourcePath(collection, id), nil)
}
