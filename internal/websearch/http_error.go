package websearch

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/worker"
)

// HTTPError is a sanitized summary of a non-2xx provider response.
//
// Raw bodies are never kept; Snippet is redacted and truncated.
type HTTPError struct {
	Provider   string
	StatusCode int
	Status     string
	Snippet    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "websearch http error"
	}
	msg := fmt.Sprintf("%s api error: status=%s", e.Provider, strings.TrimSpace(e.Status))
	if strings.TrimSpace(e.Snippet) != "" {
		msg += " body=" + strings.TrimSpace(e.Snippet)
	}
	return msg
}

// newHTTPError builds the error for a failed response. Rate limiting and
// server errors are wrapped as transient.
func newHTTPError(provider string, resp *http.Response, body []byte) error {
	h := &HTTPError{Provider: provider}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}
	h.Snippet = redactAndTruncate(body)
	if h.StatusCode == http.StatusTooManyRequests || h.StatusCode/100 == 5 {
		return &worker.TransientError{Err: h}
	}
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
