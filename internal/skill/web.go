package skill

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/duskcore/agentd/internal/domain/entity"
	"go.uber.org/zap"
)

const maxRetries = 3

// WebHandler implements the web skill's method table (spec §4.3):
// web_search against a configurable research endpoint (the teacher
// shells out to a bundled research.py script; this module speaks HTTP
// directly to whatever research provider is configured, since no
// sideload runtime is part of this spec), plus the generic
// http_get_json/http_get_text/http_post_json fetchers with domain-scope
// enforcement and linear-backoff retry on 5xx/429.
type WebHandler struct {
	client       *http.Client
	searchURL    string
	searchAPIKey string

	mu             sync.RWMutex
	allowedDomains []string
	blockedDomains []string

	logger *zap.Logger
}

func NewWebHandler(searchURL, searchAPIKey string, allowedDomains, blockedDomains []string, logger *zap.Logger) *WebHandler {
	return &WebHandler{
		client:         &http.Client{Timeout: 60 * time.Second},
		searchURL:      searchURL,
		searchAPIKey:   searchAPIKey,
		allowedDomains: allowedDomains,
		blockedDomains: blockedDomains,
		logger:         logger,
	}
}

func (h *WebHandler) Call(ctx context.Context, method string, params map[string]interface{}) (*entity.CommandResult, error) {
	switch method {
	case "web_search", "read_web_page":
		return h.webSearch(ctx, params)
	case "http_get_json", "http_get_text":
		return h.httpGet(ctx, params, method == "http_get_json")
	case "http_post_json":
		return h.httpPostJSON(ctx, params)
	default:
		return nil, fmt.Errorf("unknown web method %q", method)
	}
}

func (h *WebHandler) webSearch(ctx context.Context, params map[string]interface{}) (*entity.CommandResult, error) {
	query, ok := stringParam(params, "query")
	if !ok {
		query, ok = stringParam(params, "url")
	}
	if !ok {
		return failResult("query is required"), nil
	}
	if h.searchURL == "" {
		return failResult("no research provider configured"), nil
	}

	reqURL := h.searchURL + "?q=" + url.QueryEscape(query)
	newReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		if h.searchAPIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.searchAPIKey)
		}
		return req, nil
	}

	body, status, err := h.doWithRetry(newReq, 2*1024*1024)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if status >= 400 {
		return failResult(fmt.Sprintf("research provider returned %d", status)), nil
	}
	return &entity.CommandResult{Success: true, Output: string(body)}, nil
}

func (h *WebHandler) httpGet(ctx context.Context, params map[string]interface{}, asJSON bool) (*entity.CommandResult, error) {
	rawURL, ok := stringParam(params, "url")
	if !ok {
		return failResult("url is required"), nil
	}
	if err := h.checkScope(rawURL); err != nil {
		return failResult(err.Error()), nil
	}
	maxBytes := clampInt(intParam(params, "max_bytes", 1024*1024), 1024, 2*1024*1024)
	timeoutMs := clampInt(intParam(params, "timeout_ms", 10000), 1000, 60000)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	newReq := func() (*http.Request, error) {
		return http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	}

	body, status, err := h.doWithRetry(newReq, maxBytes)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if status >= 400 {
		return failResult(fmt.Sprintf("HTTP %d fetching %s", status, rawURL)), nil
	}
	_ = asJSON // both variants return the raw body; callers parse JSON themselves
	return &entity.CommandResult{Success: true, Output: string(body), Metadata: map[string]interface{}{"status": status}}, nil
}

func (h *WebHandler) httpPostJSON(ctx context.Context, params map[string]interface{}) (*entity.CommandResult, error) {
	rawURL, ok := stringParam(params, "url")
	if !ok {
		return failResult("url is required"), nil
	}
	if err := h.checkScope(rawURL); err != nil {
		return failResult(err.Error()), nil
	}
	bodyStr, _ := stringParam(params, "body")
	timeoutMs := clampInt(intParam(params, "timeout_ms", 10000), 1000, 60000)
	maxBytes := clampInt(intParam(params, "max_bytes", 1024*1024), 1024, 2*1024*1024)

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	newReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, rawURL, bytes.NewBufferString(bodyStr))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	body, status, err := h.doWithRetry(newReq, maxBytes)
	if err != nil {
		return failResult(err.Error()), nil
	}
	if status >= 400 {
		return failResult(fmt.Sprintf("HTTP %d posting to %s", status, rawURL)), nil
	}
	return &entity.CommandResult{Success: true, Output: string(body), Metadata: map[string]interface{}{"status": status}}, nil
}

// checkScope enforces scheme ∈ {http, https} and the domain allow/block
// lists (spec §4.3). An empty allowedDomains means any non-blocked host
// is in scope.
func (h *WebHandler) checkScope(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed", u.Scheme)
	}
	host := u.Hostname()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, blocked := range h.blockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("domain %q is blocked", host)
		}
	}
	if len(h.allowedDomains) == 0 {
		return nil
	}
	for _, allowed := range h.allowedDomains {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("domain %q is not in scope", host)
}

// SetDomainScope replaces the domain allow/block lists wholesale, for the
// config watcher's tool-policy hot-reload.
func (h *WebHandler) SetDomainScope(allowedDomains, blockedDomains []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allowedDomains = append([]string(nil), allowedDomains...)
	h.blockedDomains = append([]string(nil), blockedDomains...)
}

// doWithRetry builds and performs a fresh request via newReq on every
// attempt, retrying up to maxRetries times with linear backoff on
// 5xx/429 responses (spec §4.3), and refuses bodies exceeding maxBytes.
// A request is rebuilt rather than reused because http_post_json's body
// reader is consumed by the first attempt.
func (h *WebHandler) doWithRetry(newReq func() (*http.Request, error), maxBytes int) ([]byte, int, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}

		req, err := newReq()
		if err != nil {
			return nil, 0, err
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		limited := io.LimitReader(resp.Body, int64(maxBytes)+1)
		body, readErr := io.ReadAll(limited)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if len(body) > maxBytes {
			return nil, resp.StatusCode, fmt.Errorf("response exceeds max_bytes cap of %d", maxBytes)
		}

		lastStatus = resp.StatusCode
		lastErr = nil
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if attempt < maxRetries {
				continue
			}
		}
		return body, resp.StatusCode, nil
	}

	if lastErr != nil {
		return nil, lastStatus, lastErr
	}
	return nil, lastStatus, fmt.Errorf("request failed after %d retries", maxRetries)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
