// Package ldp is the Graph Store Client: it reads and writes the RDF
// statements of resources held by the Linked Data Platform object store.
package ldp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/remote"
)

const (
	mediaNTriples     = "application/n-triples"
	mediaTurtle       = "text/turtle"
	mediaSPARQLUpdate = "application/sparql-update"
	linkRDFSource     = `<http://www.w3.org/ns/ldp#RDFSource>; rel="type"`
	preferReturnRepr  = "return=representation"
)

// Config holds object store client settings.
type Config struct {
	// BaseURL, when set, replaces scheme and host of every resource IRI.
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Retry    remote.Retry
}

// Client talks to the object store over HTTP.
type Client struct {
	remote   *remote.Client
	base     *url.URL
	username string
	password string
}

// New creates an object store client.
func New(cfg Config) (*Client, error) {
	c := &Client{
		remote:   remote.New("ldp", cfg.Timeout, cfg.Retry),
		username: cfg.Username,
		password: cfg.Password,
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ldp base url: %w", err)
		}
		c.base = u
	}
	return c, nil
}

// GetGraph fetches the current statements of a resource.
func (c *Client) GetGraph(ctx context.Context, iri string) ([]graph.Triple, error) {
	resp, err := c.remote.Do(ctx, "get", func(ctx context.Context) (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, iri, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", mediaNTriples)
		req.Header.Set("Prefer", preferReturnRepr)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", iri, err)
	}
	triples, err := graph.ParseNTriples(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("get graph %s: response body: %w: %w", iri, domain.ErrTransport, err)
	}
	return triples, nil
}

// PatchGraph adds statements to a resource with a SPARQL Update.
func (c *Client) PatchGraph(ctx context.Context, iri string, triples []graph.Triple) error {
	body := "INSERT {\n" + graph.Serialize(triples) + "} WHERE {}"
	_, err := c.remote.Do(ctx, "patch", func(ctx context.Context) (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPatch, iri, []byte(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mediaSPARQLUpdate)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("patch graph %s: %w", iri, err)
	}
	return nil
}

// PutGraph replaces a resource with the given statements, creating it if needed.
func (c *Client) PutGraph(ctx context.Context, iri string, triples []graph.Triple) error {
	body := []byte(graph.Serialize(triples))
	_, err := c.remote.Do(ctx, "put", func(ctx context.Context) (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPut, iri, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mediaTurtle)
		req.Header.Set("Link", linkRDFSource)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("put graph %s: %w", iri, err)
	}
	return nil
}

// Resolve maps a resource IRI to the URL requests are sent to.
func (c *Client) Resolve(iri string) (string, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return "", fmt.Errorf("resource iri %q: %w", iri, err)
	}
	if !strings.HasPrefix(u.Scheme, "http") || u.Host == "" {
		return "", fmt.Errorf("resource iri %q: not an http url", iri)
	}
	if c.base != nil {
		u.Scheme = c.base.Scheme
		u.Host = c.base.Host
	}
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, iri string, body []byte) (*http.Request, error) {
	target, err := c.Resolve(iri)
	if err != nil {
		return nil, err
	}
	var req *http.Request
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, target, http.NoBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	}
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}
