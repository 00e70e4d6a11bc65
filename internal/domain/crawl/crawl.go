// Package crawl defines the self-contained crawl request passed between
// crawler invocations.
package crawl

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

// Request asks the crawler to visit StartURI and, while Depth > 0, every
// resource it contains. Requests are values: children are derived, never
// mutated in place.
type Request struct {
	StartURI string            `json:"startUri"`
	Depth    int               `json:"depth"`
	Topic    string            `json:"kafkaTopic"`
	Options  map[string]string `json:"options,omitempty"`
	CrawlID  string            `json:"crawlId,omitempty"`
}

// Terminal reports whether the request must not fan out further.
func (r Request) Terminal() bool { return r.Depth <= 0 }

// Child derives the request for a contained resource.
func (r Request) Child(iri string) Request {
	return Request{
		StartURI: iri,
		Depth:    r.Depth - 1,
		Topic:    r.Topic,
		Options:  maps.Clone(r.Options),
		CrawlID:  r.CrawlID,
	}
}

// Validate checks the mandatory fields.
func (r Request) Validate() error {
	if r.StartURI == "" {
		return fmt.Errorf("crawl request: startUri is required: %w", domain.ErrMalformedPayload)
	}
	if r.Topic == "" {
		return fmt.Errorf("crawl request: kafkaTopic is required: %w", domain.ErrMalformedPayload)
	}
	if r.Depth < 0 {
		return fmt.Errorf("crawl request: depth %d is negative: %w", r.Depth, domain.ErrMalformedPayload)
	}
	return nil
}

// Parse decodes and validates a crawl request. Unknown top-level string
// members are folded into Options.
func Parse(data []byte) (Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, fmt.Errorf("decode crawl request: %w: %v", domain.ErrMalformedPayload, err)
	}

	var req Request
	fields := map[string]any{
		"startUri":   &req.StartURI,
		"depth":      &req.Depth,
		"kafkaTopic": &req.Topic,
		"options":    &req.Options,
		"crawlId":    &req.CrawlID,
	}
	for key, val := range raw {
		if dst, ok := fields[key]; ok {
			if err := json.Unmarshal(val, dst); err != nil {
				return Request{}, fmt.Errorf("decode crawl request %s: %w: %v", key, domain.ErrMalformedPayload, err)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			continue
		}
		if req.Options == nil {
			req.Options = make(map[string]string)
		}
		if _, exists := req.Options[key]; !exists {
			req.Options[key] = s
		}
	}

	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
