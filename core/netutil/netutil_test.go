package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok")), Request: req}, nil
}

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", timeoutErr{}, true},
		{"dial", dial, true},
		{"wrapped dial", &url.Error{Op: "Get", URL: "https://x", Err: dial}, true},
		{"cancelled", context.Canceled, false},
		{"status", &StatusError{Code: 503}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", ClassifyError(nil))
	assert.Equal(t, "timeout", ClassifyError(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.Equal(t, "dial", ClassifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "dns", ClassifyError(&net.DNSError{Name: "example.invalid"}))
	assert.Equal(t, "http_5xx", ClassifyError(fmt.Errorf("x: %w", &StatusError{Code: 502})))
	assert.Equal(t, "http_429", ClassifyError(&StatusError{Code: 429}))
	assert.Equal(t, "http_4xx", ClassifyError(&StatusError{Code: 404}))
	assert.Equal(t, "unknown", ClassifyError(errors.New("boom")))
}

func TestRedact(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": timeout`
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, Redact(msg))
	assert.Contains(t, (&StatusError{Code: 500, URL: "https://api.telegram.org/bot1:x/getMe"}).Error(), "bot<redacted>")
}

func TestRetryTransportRetriesTransientErrors(t *testing.T) {
	base := &scriptedTransport{errs: []error{timeoutErr{}, timeoutErr{}}}
	rt := &RetryTransport{Base: base, Retries: 2}

	req, err := http.NewRequest(http.MethodGet, "https://example.com/a.pdf", nil)
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, base.calls)
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &scriptedTransport{errs: []error{timeoutErr{}, timeoutErr{}, timeoutErr{}}}
	rt := &RetryTransport{Base: base, Retries: 1}

	req, err := http.NewRequest(http.MethodGet, "https://example.com/a.pdf", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	base := &scriptedTransport{errs: []error{errors.New("tls: bad certificate")}}
	rt := &RetryTransport{Base: base, Retries: 3}

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestRetryTransportHonoursContext(t *testing.T) {
	base := &scriptedTransport{errs: []error{timeoutErr{}, timeoutErr{}}}
	rt := &RetryTransport{Base: base, Retries: 2, Backoff: 1 << 40}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, base.calls)
}
