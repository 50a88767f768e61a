package wstrade

import (
	"context"
	"net/http"
	"net/url"

	"github.com/northquay/wstrade-go/pkg/httpclient"
)

// Security is one listing known to the trade service.
type Security struct {
	ID       string   `json:"id"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Exchange Exchange `json:"exchange"`
	Currency string   `json:"currency"`
	// Primary marks the listing the server reports as the security's
	// primary exchange.
	Primary bool   `json:"primary"`
	Status  string `json:"status"`
}

// DataAPI exposes security reference data.
type DataAPI struct {
	s *Session
}

// Search returns every listing matching the query string.
func (d *DataAPI) Search(ctx context.Context, query string) ([]Security, error) {
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathSecuritySearch,
		Query:  url.Values{"query": {query}},
	}

	var resp struct {
		Results []Security `json:"results"`
	}
	if err := d.s.call(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Security fetches one listing by its internal id.
func (d *DataAPI) Security(ctx context.Context, id string) (*Security, error) {
	req := httpclient.Request{
		Method: http.MethodGet,
		Path:   pathSecurity(id),
	}

	var sec Security
	if err := d.s.call(ctx, req, &sec); err != nil {
		return nil, err
	}
	return &sec, nil
}
