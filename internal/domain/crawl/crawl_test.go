package crawl

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
)

func TestParse(t *testing.T) {
	req, err := Parse([]byte(`{"startUri":"https://x/A","depth":2,"kafkaTopic":"objects","options":{"k":"v"},"crawlId":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, Request{StartURI: "https://x/A", Depth: 2, Topic: "objects", Options: map[string]string{"k": "v"}, CrawlID: "c1"}, req)
}

func TestParse_ExtraMembersBecomeOptions(t *testing.T) {
	req, err := Parse([]byte(`{"startUri":"https://x/A","depth":0,"kafkaTopic":"reindex","reason":"backfill","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"reason": "backfill"}, req.Options)
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{
		`nope`,
		`{"depth":1,"kafkaTopic":"objects"}`,
		`{"startUri":"https://x/A","depth":1}`,
		`{"startUri":"https://x/A","depth":-1,"kafkaTopic":"objects"}`,
		`{"startUri":"https://x/A","depth":"deep","kafkaTopic":"objects"}`,
	} {
		_, err := Parse([]byte(data))
		require.Error(t, err, data)
		assert.True(t, errors.Is(err, domain.ErrMalformedPayload), data)
	}
}

func TestChild(t *testing.T) {
	parent := Request{StartURI: "https://x/A", Depth: 3, Topic: "objects", Options: map[string]string{"k": "v"}, CrawlID: "c1"}
	child := parent.Child("https://x/A/B")

	assert.Equal(t, "https://x/A/B", child.StartURI)
	assert.Equal(t, 2, child.Depth)
	assert.Equal(t, "objects", child.Topic)
	assert.Equal(t, "c1", child.CrawlID)

	child.Options["k"] = "changed"
	assert.Equal(t, "v", parent.Options["k"], "child options must be a copy")
	assert.Equal(t, 3, parent.Depth)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Request{Depth: 0}.Terminal())
	assert.False(t, Request{Depth: 1}.Terminal())
}

func TestMarshalRoundTrip(t *testing.T) {
	req := Request{StartURI: "https://x/A", Depth: 1, Topic: "objects"}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}
