// Package elastic publishes documents to an Elasticsearch compatible index.
package elastic

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

// Config holds search index settings.
type Config struct {
	URL     string
	Timeout time.Duration
	Retry   remote.Retry
}

// Client is a minimal search index client.
type Client struct {
	remote *remote.Client
	base   string
}

// New creates a search index client.
func New(cfg Config) *Client {
	return &Client{
		remote: remote.New("search", cfg.Timeout, cfg.Retry),
		base:   strings.TrimRight(cfg.URL, "/"),
	}
}

// Upsert writes doc under id, replacing any previous version.
func (c *Client) Upsert(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	target := c.base + "/" + url.PathEscape(index) + "/_doc/" + url.PathEscape(id)
	_, err = c.remote.Do(ctx, "upsert", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", index, id, err)
	}
	return nil
}

// BulkAction is one action/source pair of a bulk request.
type BulkAction struct {
	Index  string
	ID     string
	Source any
}

type bulkMeta struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// EncodeBulk renders actions as newline delimited action/source pairs.
func EncodeBulk(actions []BulkAction) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		var m bulkMeta
		m.Index.Index = a.Index
		m.Index.ID = a.ID
		if err := enc.Encode(m); err != nil {
			return nil, err
		}
		if err := enc.Encode(a.Source); err != nil {
			return nil, fmt.Errorf("encode bulk source %s: %w", a.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// Bulk indexes actions in one request. A response that reports item errors
// is returned as an error naming the first failure.
func (c *Client) Bulk(ctx context.Context, actions []BulkAction) error {
	if len(actions) == 0 {
		return nil
	}
	body, err := EncodeBulk(actions)
	if err != nil {
		return err
	}
	resp, err := c.remote.Do(ctx, "bulk", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/_bulk", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("bulk: %w", err)
	}

	var br bulkResponse
	if err := json.Unmarshal(resp.Body, &br); err != nil {
		return fmt.Errorf("bulk: decode response: %w: %v", domain.ErrTransport, err)
	}
	if !br.Errors {
		return nil
	}
	failed := 0
	first := ""
	for _, item := range br.Items {
		for _, r := range item {
			if r.Error == nil {
				continue
			}
			failed++
			if first == "" {
				first = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
			}
		}
	}
	return fmt.Errorf("bulk: %d of %d items failed, first %s", failed, len(actions), first)
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.remote.Do(ctx, "ping", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", http.NoBody)
	})
	if err != nil {
		return fmt.Errorf("search ping: %w", err)
	}
	return nil
}
