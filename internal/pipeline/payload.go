package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

// iriKeys are the JSON members accepted as the resource IRI of a request body.
var iriKeys = []string{"id", "graphUri", "submissionUri", "startUri"}

// ParseIRI reads a resource IRI from a bare IRI payload or a JSON object
// carrying it under one of the well-known keys.
func ParseIRI(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	iri := string(data)
	if len(data) > 0 && data[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", fmt.Errorf("decode iri payload: %w: %v", domain.ErrMalformedPayload, err)
		}
		iri = ""
		for _, k := range iriKeys {
			if s, ok := obj[k].(string); ok && s != "" {
				iri = s
				break
			}
		}
	}
	if err := ValidateIRI(iri); err != nil {
		return "", err
	}
	return iri, nil
}

// ValidateIRI requires an absolute http(s) IRI.
func ValidateIRI(iri string) error {
	u, err := url.Parse(iri)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("resource iri %q: %w", iri, domain.ErrMalformedPayload)
	}
	return nil
}
