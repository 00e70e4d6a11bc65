// Package event models the ActivityStreams change notifications exchanged
// between pipeline stages.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Operation is the kind of change a notification describes.
type Operation string

// Supported operations.
const (
	OpCreate Operation = "Create"
	OpUpdate Operation = "Update"
	OpDelete Operation = "Delete"
)

// ParseOperation accepts the short form ("Update"), the full ActivityStreams
// IRI or the "as:" compact form.
func ParseOperation(s string) (Operation, error) {
	name := s
	switch {
	case strings.HasPrefix(s, vocab.ASNS):
		name = strings.TrimPrefix(s, vocab.ASNS)
	case strings.HasPrefix(s, "as:"):
		name = strings.TrimPrefix(s, "as:")
	}
	switch Operation(name) {
	case OpCreate, OpUpdate, OpDelete:
		return Operation(name), nil
	default:
		return "", fmt.Errorf("unknown operation %q: %w", s, domain.ErrMalformedPayload)
	}
}

// ChangeEvent is an immutable notification that one resource changed.
type ChangeEvent struct {
	IRI   string
	Op    Operation
	Types []string
}

// HasType reports whether the event lists typeIRI among the resource types.
func (e ChangeEvent) HasType(typeIRI string) bool {
	for _, t := range e.Types {
		if t == typeIRI {
			return true
		}
	}
	return false
}

// IsContainer reports whether any of the resource types is an LDP container type.
func (e ChangeEvent) IsContainer() bool {
	for _, t := range e.Types {
		if vocab.IsContainerType(t) {
			return true
		}
	}
	return false
}

type wireObject struct {
	ID   string   `json:"id"`
	Type []string `json:"type,omitempty"`
}

type wireEnvelope struct {
	Context   string      `json:"@context,omitempty"`
	ID        string      `json:"id,omitempty"`
	Type      []string    `json:"type"`
	Actor     []string    `json:"actor,omitempty"`
	Object    *wireObject `json:"object"`
	Published string      `json:"published,omitempty"`
}

// Parse decodes a change notification. The operation is read from the second
// element of the top-level type array.
func Parse(data []byte) (ChangeEvent, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w: %v", domain.ErrMalformedPayload, err)
	}
	if env.Object == nil || env.Object.ID == "" {
		return ChangeEvent{}, fmt.Errorf("change event: object.id is required: %w", domain.ErrMalformedPayload)
	}
	if len(env.Type) < 2 {
		return ChangeEvent{}, fmt.Errorf("change event: type must have at least 2 entries: %w", domain.ErrMalformedPayload)
	}
	op, err := ParseOperation(env.Type[1])
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("change event: %w", err)
	}
	return ChangeEvent{IRI: env.Object.ID, Op: op, Types: append([]string(nil), env.Object.Type...)}, nil
}

// Notification is an outgoing ActivityStreams envelope.
type Notification struct {
	ID        string
	Op        Operation
	Actor     string
	Object    string
	Types     []string
	Published time.Time
}

// NewNotification builds a notification attributed to actor with a fresh urn:uuid id.
func NewNotification(iri string, op Operation, actor string, types []string) Notification {
	return Notification{
		ID:        "urn:uuid:" + uuid.NewString(),
		Op:        op,
		Actor:     actor,
		Object:    iri,
		Types:     types,
		Published: time.Now().UTC(),
	}
}

// MarshalJSON renders the envelope in the same shape Parse accepts.
func (n Notification) MarshalJSON() ([]byte, error) {
	env := wireEnvelope{
		Context: vocab.ASContext,
		ID:      n.ID,
		Type:    []string{vocab.PROVActivity, string(n.Op)},
		Object:  &wireObject{ID: n.Object, Type: n.Types},
	}
	if n.Actor != "" {
		env.Actor = []string{n.Actor}
	}
	if !n.Published.IsZero() {
		env.Published = n.Published.Format(time.RFC3339)
	}
	return json.Marshal(env)
}
