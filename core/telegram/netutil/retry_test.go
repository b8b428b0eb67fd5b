package netutil

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", dialErr(), true},
		{"wrapped dial", &url.Error{Op: "Get", URL: "http://x", Err: dialErr()}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryTransportRetriesDialFailures(t *testing.T) {
	calls := 0
	rt := &RetryTransport{
		MaxRetries: 2,
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, dialErr()
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil
		}),
	}
	req, _ := http.NewRequest(http.MethodGet, "http://backend/api/plans", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryTransportSkipsNonRetryable(t *testing.T) {
	calls := 0
	rt := &RetryTransport{
		MaxRetries: 3,
		Retryable:  IdempotentOnly,
		Base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return nil, dialErr()
		}),
	}
	req, _ := http.NewRequest(http.MethodPost, "http://backend/api/subscriptions", strings.NewReader("{}"))
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("POST must not be retried, got %d attempts", calls)
	}
}
