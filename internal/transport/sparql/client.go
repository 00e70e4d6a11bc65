// Package sparql queries and updates the triple store over the SPARQL 1.1
// protocol.
package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/remote"
)

// Config holds triple store endpoints.
type Config struct {
	QueryURL  string
	UpdateURL string
	Timeout   time.Duration
	Retry     remote.Retry
}

// Client is a SPARQL protocol client.
type Client struct {
	remote    *remote.Client
	queryURL  string
	updateURL string
}

// New creates a SPARQL client.
func New(cfg Config) *Client {
	return &Client{
		remote:    remote.New("sparql", cfg.Timeout, cfg.Retry),
		queryURL:  cfg.QueryURL,
		updateURL: cfg.UpdateURL,
	}
}

// Term is one bound value in a result row.
type Term struct {
	Type     string `json:"type"` // uri, literal, bnode
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Type == "uri" }

// IsLiteral reports whether the term is a literal. Older stores report
// typed literals as "typed-literal".
func (t Term) IsLiteral() bool { return t.Type == "literal" || t.Type == "typed-literal" }

// Results is the SPARQL JSON results document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Term `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Values returns the lexical values bound to name, skipping unbound rows.
func (r *Results) Values(name string) []string {
	var out []string
	for _, row := range r.Results.Bindings {
		if t, ok := row[name]; ok {
			out = append(out, t.Value)
		}
	}
	return out
}

// IRIs returns the IRI values bound to name.
func (r *Results) IRIs(name string) []string {
	var out []string
	for _, row := range r.Results.Bindings {
		if t, ok := row[name]; ok && t.IsIRI() {
			out = append(out, t.Value)
		}
	}
	return out
}

// Select runs a query and decodes the JSON results.
func (c *Client) Select(ctx context.Context, query string) (*Results, error) {
	resp, err := c.remote.Do(ctx, "select", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, strings.NewReader(query))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/sparql-query; charset=utf-8")
		req.Header.Set("Accept", "application/sparql-results+json, application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sparql select: %w", err)
	}

	var res Results
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&res); err != nil {
		return nil, fmt.Errorf("sparql select: decode results: %w: %v", domain.ErrTransport, err)
	}
	return &res, nil
}

// Update runs a SPARQL Update request.
func (c *Client) Update(ctx context.Context, update string) error {
	form := url.Values{"update": {update}}.Encode()
	_, err := c.remote.Do(ctx, "update", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("sparql update: %w", err)
	}
	return nil
}

// Ping runs a trivial ASK query.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.Select(ctx, "ASK {}"); err != nil {
		return err
	}
	return nil
}
