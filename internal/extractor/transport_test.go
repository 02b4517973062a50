package extractor

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

// scriptedTransport replays a fixed sequence of responses and errors.
type scriptedTransport struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func (t *scriptedTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	i := t.calls
	t.calls++
	if t.errs[i] != nil {
		return nil, t.errs[i]
	}
	return t.responses[i], nil
}

func fastRetryTransport(base http.RoundTripper) *retryTransport {
	return &retryTransport{
		base: base,
		config: retryConfig{
			MaxRetries:   3,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		},
	}
}

func responseWithBody(status int) (*http.Response, *trackedBody) {
	body := &trackedBody{Reader: strings.NewReader("payload")}
	return &http.Response{StatusCode: status, Body: body}, body
}

func TestRetryTransportClosesRetriedResponseOnSuccess(t *testing.T) {
	retryable, retryableBody := responseWithBody(http.StatusServiceUnavailable)
	final, finalBody := responseWithBody(http.StatusOK)
	base := &scriptedTransport{
		responses: []*http.Response{retryable, final},
		errs:      []error{nil, nil},
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	resp, err := fastRetryTransport(base).RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected the final 200, got %d", resp.StatusCode)
	}
	if !retryableBody.closed {
		t.Fatalf("retried response body was not closed")
	}
	if finalBody.closed {
		t.Fatalf("returned response body must stay open")
	}
}

func TestRetryTransportClosesRetriedResponseOnFatalError(t *testing.T) {
	retryable, retryableBody := responseWithBody(http.StatusBadGateway)
	base := &scriptedTransport{
		responses: []*http.Response{retryable, nil},
		errs:      []error{nil, errors.New("tls handshake rejected")},
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	if _, err := fastRetryTransport(base).RoundTrip(req); err == nil {
		t.Fatalf("expected the fatal error to propagate")
	}
	if !retryableBody.closed {
		t.Fatalf("retried response body was not closed")
	}
}

func TestRetryTransportReturnsLastResponseWhenExhausted(t *testing.T) {
	bodies := make([]*trackedBody, 4)
	responses := make([]*http.Response, 4)
	for i := range responses {
		responses[i], bodies[i] = responseWithBody(http.StatusServiceUnavailable)
	}
	base := &scriptedTransport{
		responses: responses,
		errs:      make([]error, 4),
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	resp, err := fastRetryTransport(base).RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	if resp != responses[3] {
		t.Fatalf("expected the last attempt's response")
	}
	for i, body := range bodies[:3] {
		if !body.closed {
			t.Fatalf("superseded response %d was not closed", i)
		}
	}
	if bodies[3].closed {
		t.Fatalf("returned response body must stay open")
	}
}
