package apollo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/entity-research/internal/util"
	"github.com/shpitdev/entity-research/internal/worker"
)

// errorEnvelope is the error body Apollo returns on most 4xx responses.
type errorEnvelope struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// HTTPError is a sanitized summary of a non-2xx Apollo response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	Code       string

	// Snippet is a redacted, truncated hint for responses without an envelope.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "apollo http error"
	}
	parts := []string{
		fmt.Sprintf("apollo api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Code) != "" {
		parts = append(parts, "code="+strings.TrimSpace(e.Code))
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+util.RedactSecrets(strings.TrimSpace(e.Message)))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && (env.Error != "" || env.ErrorCode != "") {
		h.Message = strings.TrimSpace(env.Error)
		h.Code = strings.TrimSpace(env.ErrorCode)
	} else {
		h.Snippet = redactAndTruncate(body)
	}

	if h.StatusCode == http.StatusTooManyRequests || h.StatusCode/100 == 5 {
		return &worker.TransientError{Err: h}
	}
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const limit = 256
	b := body
	if len(b) > limit {
		b = b[:limit]
	}
	s := util.RedactSecrets(string(b))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if len(body) > limit {
		return s + "..."
	}
	return s
}
