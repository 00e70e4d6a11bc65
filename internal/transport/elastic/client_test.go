package elastic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/remote"
)

var fastRetry = remote.Retry{MaxAttempts: 2, Initial: time.Millisecond, Max: time.Millisecond}

func newClient(url string) *Client {
	return New(Config{URL: url + "/", Timeout: time.Second, Retry: fastRetry})
}

func TestUpsert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/descriptions/_doc/-description-A", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var doc map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "https://x/description/A", doc["uri"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newClient(srv.URL).Upsert(context.Background(), "descriptions", "-description-A",
		map[string]string{"uri": "https://x/description/A"})
	require.NoError(t, err)
}

func TestEncodeBulk(t *testing.T) {
	body, err := EncodeBulk([]BulkAction{
		{Index: "authority-records", ID: "https://x/p1", Source: map[string]string{"id": "https://x/p1"}},
		{Index: "authority-records", ID: "https://x/p2", Source: map[string]string{"id": "https://x/p2"}},
	})
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"authority-records","_id":"https://x/p1"}}`, lines[0])
	assert.JSONEq(t, `{"id":"https://x/p1"}`, lines[1])
	assert.True(t, bytes.HasSuffix(body, []byte("\n")))
}

func TestBulk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, 2, bytes.Count(body, []byte("\n")))
		_, _ = io.WriteString(w, `{"took":1,"errors":false,"items":[{"index":{"_id":"a","status":201}}]}`)
	}))
	defer srv.Close()

	err := newClient(srv.URL).Bulk(context.Background(), []BulkAction{{Index: "i", ID: "a", Source: map[string]string{}}})
	require.NoError(t, err)
}

func TestBulk_ItemErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"errors":true,"items":[
			{"index":{"_id":"a","status":201}},
			{"index":{"_id":"b","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}
		]}`)
	}))
	defer srv.Close()

	err := newClient(srv.URL).Bulk(context.Background(), []BulkAction{
		{Index: "i", ID: "a", Source: map[string]string{}},
		{Index: "i", ID: "b", Source: map[string]string{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 items failed")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestBulk_UndecodableResponseIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	defer srv.Close()

	err := newClient(srv.URL).Bulk(context.Background(), []BulkAction{{Index: "i", ID: "a", Source: map[string]string{}}})
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.False(t, domain.IsPermanent(err))
}

func TestBulk_Empty(t *testing.T) {
	require.NoError(t, newClient("http://unused.invalid").Bulk(context.Background(), nil))
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"cluster_name":"test"}`)
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL).Ping(context.Background()))
}
