package event

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

func TestParse(t *testing.T) {
	data := []byte(`{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id": "urn:uuid:1",
		"type": ["http://www.w3.org/ns/prov#Activity", "Create"],
		"object": {"id": "https://x/coll-1", "type": ["http://pcdm.org/models#Collection", "http://www.w3.org/ns/ldp#BasicContainer"]}
	}`)
	ev, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "https://x/coll-1", ev.IRI)
	assert.Equal(t, OpCreate, ev.Op)
	assert.True(t, ev.HasType(vocab.PCDMCollection))
	assert.True(t, ev.IsContainer())
}

func TestParse_FullIRIOperation(t *testing.T) {
	data := []byte(`{"type":["x","https://www.w3.org/ns/activitystreams#Delete"],"object":{"id":"https://x/a"}}`)
	ev, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, OpDelete, ev.Op)
	assert.False(t, ev.IsContainer())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no object", `{"type":["a","Create"]}`},
		{"empty id", `{"type":["a","Create"],"object":{"id":""}}`},
		{"short type", `{"type":["Create"],"object":{"id":"https://x/a"}}`},
		{"unknown op", `{"type":["a","Move"],"object":{"id":"https://x/a"}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedPayload))
		})
	}
}

func TestParseOperation(t *testing.T) {
	for _, s := range []string{"Update", "as:Update", vocab.ASUpdate} {
		op, err := ParseOperation(s)
		require.NoError(t, err, s)
		assert.Equal(t, OpUpdate, op)
	}
}

func TestNotification_RoundTrip(t *testing.T) {
	n := NewNotification("https://x/a", OpUpdate, vocab.CrawlerAgent, []string{vocab.LDPRDFSource})
	assert.True(t, strings.HasPrefix(n.ID, "urn:uuid:"))

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, vocab.ASContext, raw["@context"])
	assert.Equal(t, []any{vocab.PROVActivity, "Update"}, raw["type"])
	assert.Equal(t, []any{vocab.CrawlerAgent}, raw["actor"])

	ev, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "https://x/a", ev.IRI)
	assert.Equal(t, OpUpdate, ev.Op)
	assert.Equal(t, []string{vocab.LDPRDFSource}, ev.Types)
}
