// Package common holds the small pieces every concrete Provider Adapter
// shares: HTTP status-to-category mapping and an idle-timeout-aware SSE
// reader, grounded on the teacher's openai/provider.go and openai/sse.go
// duplicated near-identically across its openai/anthropic/gemini
// sub-packages.
package common

import (
	"net/http"
	"strings"

	"github.com/duskcore/agentd/internal/domain/entity"
)

// CategorizeStatus maps an HTTP response status (and, for 400s, the raw
// body, which often carries a more specific reason) to the Runtime's
// error taxonomy (spec §4.7/§7).
func CategorizeStatus(status int, body string) entity.ErrorCategory {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return entity.ErrAuth
	case status == http.StatusTooManyRequests:
		return entity.ErrRateLimit
	case status == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(body), "context_length") || strings.Contains(strings.ToLower(body), "too many tokens") {
			return entity.ErrInvalidRequest
		}
		return entity.ErrInvalidRequest
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return entity.ErrTimeout
	case status >= 500:
		return entity.ErrAPI
	default:
		return entity.ErrAPI
	}
}
