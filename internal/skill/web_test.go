package skill

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestWebHandler(searchURL string, allowed, blocked []string) *WebHandler {
	return NewWebHandler(searchURL, "", allowed, blocked, zap.NewNop())
}

func TestWeb_HTTPGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "http_get_json", map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != `{"ok":true}` {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWeb_HTTPGet_RejectsDisallowedScheme(t *testing.T) {
	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": "ftp://example.com/file"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected ftp scheme to be rejected")
	}
}

func TestWeb_HTTPGet_RejectsOutOfScopeDomain(t *testing.T) {
	h := newTestWebHandler("", []string{"example.com"}, nil)
	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": "https://evil.test/data"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected a domain outside the allow-list to be rejected")
	}
}

func TestWeb_HTTPGet_RejectsBlockedDomain(t *testing.T) {
	h := newTestWebHandler("", nil, []string{"blocked.test"})
	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": "https://blocked.test/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected a blocked domain to be rejected")
	}
}

func TestWeb_HTTPGet_RetriesOn503ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != "ok" {
		t.Fatalf("unexpected result: %+v, attempts=%d", res, attempts)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestWeb_HTTPGet_RefusesOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 5000))
	}))
	defer srv.Close()

	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": srv.URL, "max_bytes": float64(1024)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected oversized response to be refused")
	}
}

func TestWeb_WebSearch_NoProviderConfigured(t *testing.T) {
	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "web_search", map[string]interface{}{"query": "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure with no research provider configured")
	}
}

func TestWeb_WebSearch_DelegatesToConfiguredProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("summary text"))
	}))
	defer srv.Close()

	h := newTestWebHandler(srv.URL, nil, nil)
	res, err := h.Call(context.Background(), "web_search", map[string]interface{}{"query": "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != "summary text" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWeb_HTTPPostJSON_RetriesWithFullBody(t *testing.T) {
	attempts := 0
	var lastBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		body, _ := io.ReadAll(r.Body)
		lastBody = string(body)
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := newTestWebHandler("", nil, nil)
	res, err := h.Call(context.Background(), "http_post_json", map[string]interface{}{"url": srv.URL, "body": `{"n":1}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != "ok" {
		t.Fatalf("unexpected result: %+v, attempts=%d", res, attempts)
	}
	if lastBody != `{"n":1}` {
		t.Fatalf("expected the retried request to carry the full body, got %q", lastBody)
	}
}

func TestWeb_SetDomainScope_AppliesToSubsequentCalls(t *testing.T) {
	h := newTestWebHandler("", []string{"example.com"}, nil)

	res, err := h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": "https://other.test/x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected other.test out of scope before SetDomainScope")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h.SetDomainScope(nil, nil)
	res, err = h.Call(context.Background(), "http_get_text", map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected an empty allow-list to permit any non-blocked domain after reload, got %+v", res)
	}
}

func TestWeb_UnknownMethod(t *testing.T) {
	h := newTestWebHandler("", nil, nil)
	if _, err := h.Call(context.Background(), "not_a_method", nil); err == nil {
		t.Fatal("expected error for unknown method")
	}
}
