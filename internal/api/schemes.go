package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/iksnae/sahayak/internal"
)

const (
	opListSchemes  = "list_schemes"
	opGetScheme    = "get_scheme"
	opFetchSchemes = "fetch_schemes"
)

// ListSchemes returns every scheme mapped to the client shape
func (c *Client) ListSchemes(ctx context.Context) ([]internal.Scheme, error) {
	var raw []internal.BackendScheme
	if err := c.do(ctx, opListSchemes, http.MethodGet, "/schemes", nil, &raw, false); err != nil {
		return nil, err
	}
	schemes := make([]internal.Scheme, 0, len(raw))
	for _, b := range raw {
		schemes = append(schemes, b.ToScheme())
	}
	return schemes, nil
}

// GetScheme fetches a single scheme by id
func (c *Client) GetScheme(ctx context.Context, id string) (internal.Scheme, error) {
	var raw internal.BackendScheme
	if err := c.do(ctx, opGetScheme, http.MethodGet, "/schemes/"+url.PathEscape(id), nil, &raw, false); err != nil {
		return internal.Scheme{}, err
	}
	return raw.ToScheme(), nil
}

// FetchSchemesFromSource asks the backend to refresh its scheme store
func (c *Client) FetchSchemesFromSource(ctx context.Context) (internal.APIMessage, error) {
	var msg internal.APIMessage
	err := c.do(ctx, opFetchSchemes, http.MethodPost, "/schemes/fetch", nil, &msg, false)
	return msg, err
}
