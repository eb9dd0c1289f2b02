package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/martinsuchenak/netcanvas/internal/mirror"
	"github.com/martinsuchenak/netcanvas/internal/snmpimport"
	"github.com/martinsuchenak/netcanvas/internal/topology"
)

// setupTestHandler creates a new Handler over an empty store
func setupTestHandler(opts ...Option) *Handler {
	return NewHandler(topology.New(), opts...)
}

// setupTestServer serves h's routes through the middleware chain
func setupTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	server := httptest.NewServer(SecurityHeadersMiddleware(mux))
	t.Cleanup(server.Close)
	return server
}

// do sends a JSON request and decodes a JSON response into out when
// out is non-nil.
func do(t *testing.T, server *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

type fakeWalker []snmpimport.Port

func (f fakeWalker) Ports(context.Context, string) ([]snmpimport.Port, error) {
	return f, nil
}

type fakeChangeLog []mirror.Change

func (f fakeChangeLog) Changes(_ context.Context, limit int) ([]mirror.Change, error) {
	if limit > 0 && limit < len(f) {
		return f[:limit], nil
	}
	return f, nil
}

func TestHandler_RegisterRoutes(t *testing.T) {
	server := setupTestServer(t, setupTestHandler())

	for _, path := range []string{"/api/components", "/api/cables", "/api/groups", "/api/vlans", "/api/networks", "/api/networks/summary", "/api/snapshot", "/api/stats", "/api/layout/engines"} {
		resp := do(t, server, "GET", path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, resp.StatusCode)
		}
	}
}
