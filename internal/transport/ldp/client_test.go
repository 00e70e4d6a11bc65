package ldp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/remote"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

var fastRetry = remote.Retry{MaxAttempts: 2, Initial: time.Millisecond, Max: time.Millisecond}

const nt = `<https://repo.example/A> <http://www.w3.org/ns/ldp#contains> <https://repo.example/A/B> .
<https://repo.example/A> <http://purl.org/dc/terms/title> "A" .
`

func newClient(t *testing.T, srv *httptest.Server, user string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, Username: user, Password: "pw", Timeout: time.Second, Retry: fastRetry})
	require.NoError(t, err)
	return c
}

func TestGetGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/A", r.URL.Path)
		assert.Equal(t, "application/n-triples", r.Header.Get("Accept"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "pw", pass)
		w.Header().Set("Content-Type", "application/n-triples")
		_, _ = io.WriteString(w, nt)
	}))
	defer srv.Close()

	triples, err := newClient(t, srv, "admin").GetGraph(context.Background(), "https://repo.example/A")
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, []string{"https://repo.example/A/B"}, graph.ObjectIRIs(triples, "", vocab.LDPContains))
}

func TestGetGraph_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newClient(t, srv, "").GetGraph(context.Background(), "https://repo.example/missing")
	var se *domain.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestGetGraph_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<https://repo.example/A> not a triple\n")
	}))
	defer srv.Close()

	_, err := newClient(t, srv, "").GetGraph(context.Background(), "https://repo.example/A")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, graph.ErrSyntax)
	assert.False(t, domain.IsPermanent(err), "a bad store response must be redelivered")
}

func TestGetGraph_NoAuthWithoutUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
	}))
	defer srv.Close()

	_, err := newClient(t, srv, "").GetGraph(context.Background(), "https://repo.example/A")
	require.NoError(t, err)
}

func TestPatchGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/sparql-update", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		s := string(body)
		assert.True(t, strings.HasPrefix(s, "INSERT {"))
		assert.True(t, strings.HasSuffix(s, "} WHERE {}"))
		assert.Contains(t, s, `"A"`)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	triples, err := graph.ParseNTriples(strings.NewReader(nt))
	require.NoError(t, err)
	require.NoError(t, newClient(t, srv, "").PatchGraph(context.Background(), "https://repo.example/A", triples))
}

func TestPutGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "text/turtle", r.Header.Get("Content-Type"))
		assert.Equal(t, `<http://www.w3.org/ns/ldp#RDFSource>; rel="type"`, r.Header.Get("Link"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	triples, err := graph.ParseNTriples(strings.NewReader(nt))
	require.NoError(t, err)
	require.NoError(t, newClient(t, srv, "").PutGraph(context.Background(), "https://repo.example/A", triples))
}

func TestPutGraph_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	err := newClient(t, srv, "").PutGraph(context.Background(), "https://repo.example/A", nil)
	assert.True(t, domain.IsPermanent(err))
}

func TestResolve(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost:8080"})
	require.NoError(t, err)
	got, err := c.Resolve("https://repo.example/A/B?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/A/B?x=1", got)

	plain, err := New(Config{})
	require.NoError(t, err)
	got, err = plain.Resolve("https://repo.example/A")
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example/A", got)

	_, err = plain.Resolve("urn:uuid:1234")
	assert.Error(t, err)
}
