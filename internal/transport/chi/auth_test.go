package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveAuth(keys []string, method, path, header string) *httptest.ResponseRecorder {
	h := BearerAuthMiddleware(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(method, path, http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBearerAuth(t *testing.T) {
	keys := []string{"ops-key", "ci-key"}
	tests := []struct {
		name   string
		keys   []string
		method string
		path   string
		header string
		want   int
	}{
		{"no keys configured", nil, "POST", "/crawl", "", http.StatusAccepted},
		{"blank keys ignored", []string{"", "  "}, "POST", "/crawl", "", http.StatusAccepted},
		{"missing header", keys, "POST", "/crawl", "", http.StatusUnauthorized},
		{"basic scheme", keys, "POST", "/reindex", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"scheme without token", keys, "POST", "/crawl", "Bearer", http.StatusUnauthorized},
		{"wrong key", keys, "POST", "/paged-documents", "Bearer nope", http.StatusUnauthorized},
		{"first key", keys, "POST", "/crawl", "Bearer ops-key", http.StatusAccepted},
		{"second key", keys, "POST", "/reindex", "Bearer ci-key", http.StatusAccepted},
		{"lowercase scheme", keys, "POST", "/crawl", "bearer ops-key", http.StatusAccepted},
		{"health is open", keys, "GET", "/health", "", http.StatusAccepted},
		{"metrics is open", keys, "GET", "/metrics", "", http.StatusAccepted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveAuth(tc.keys, tc.method, tc.path, tc.header)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestBearerAuth_RejectionBody(t *testing.T) {
	rr := serveAuth([]string{"ops-key"}, "POST", "/crawl", "Bearer nope")

	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != codeUnauthorized {
		t.Errorf("code = %s, want %s", resp.Code, codeUnauthorized)
	}
	if resp.Message != "invalid api key" {
		t.Errorf("message = %q", resp.Message)
	}
}
