package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/krxdigest/internal/common"
)

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 2048

// NewDefaultHTTPClient creates an HTTP client with a timeout that identifies
// itself with the application user agent.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", common.UserAgent())
	}
	return t.base.RoundTrip(req)
}

// ReadErrorBody drains at most maxErrorBody bytes of a failed response.
func ReadErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Sprintf("unreadable body: %v", err)
	}
	return string(body)
}

// Classify wraps err as transient when the status warrants a retry.
func Classify(status int, err error) error {
	if common.IsTransientStatus(status) {
		return &common.TransientError{Err: err}
	}
	return err
}
