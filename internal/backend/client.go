// Package backend is a typed client for the MeowVPN REST API. Every call
// carries its own deadline; failures come back as ErrUnauthorized, *APIError
// or *TransportError so callers can pick a user-facing answer.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/meowbot/core/logger"
	coretelegram "github.com/m3rciful/meowbot/core/telegram"
	"github.com/m3rciful/meowbot/core/telegram/netutil"
)

const (
	component      = "backend"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

// Options configure New.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// HTTPClient replaces the default retrying client.
	HTTPClient *http.Client
}

// Client talks to <BaseURL>/api/.
type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
}

// New builds a Client. Only GET requests are retried on dial failures.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = coretelegram.BuildHTTPClient(coretelegram.HTTPClientOptions{
			Timeout:    timeout,
			MaxRetries: opts.MaxRetries,
			Retryable:  netutil.IdempotentOnly,
		})
	}
	return &Client{base: base + "/api/", timeout: timeout, http: hc}, nil
}

type request struct {
	method   string
	endpoint string
	query    url.Values
	token    string
	body     io.Reader
	ctype    string
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, endpoint: endpoint, token: token, query: query}, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, token string, in, out any) error {
	req := request{method: http.MethodPost, endpoint: endpoint, token: token}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", endpoint, err)
		}
		req.body = bytes.NewReader(data)
		req.ctype = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.base + r.endpoint
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("backend: build %s: %w", r.endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "backend.request",
			slog.String("status", "fail"),
			slog.String("method", r.method),
			slog.String("endpoint", r.endpoint),
			slog.Duration("duration", time.Since(start)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return &TransportError{Endpoint: r.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Endpoint: r.endpoint, Err: err}
	}

	attrs := []slog.Attr{
		slog.String("method", r.method),
		slog.String("endpoint", r.endpoint),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized:
		// 403 is a policy verdict with a message, not a dead token.
		logger.Info(ctx, component, "backend.request", append(attrs, slog.String("status", "fail"))...)
		return fmt.Errorf("%s: %w", r.endpoint, ErrUnauthorized)
	default:
		logger.Warn(ctx, component, "backend.request", append(attrs,
			slog.String("status", "fail"),
			slog.String("body", logger.SanitizeLimit(string(data), 256)),
		)...)
		return &APIError{Status: resp.StatusCode, Endpoint: r.endpoint, Message: errorMessage(data)}
	}
	logger.Debug(ctx, component, "backend.request", append(attrs, slog.String("status", "ok"))...)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", r.endpoint, err)
	}
	return nil
}

// errorMessage pulls "message" (or "error") out of a JSON error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if m := strings.TrimSpace(body.Message); m != "" {
		return m
	}
	return strings.TrimSpace(body.Error)
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

// multipartBody renders the manual deposit form.
func multipartBody(amountRials int64, image []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("amount", strconv.FormatInt(amountRials, 10)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("gateway", GatewayCardToCard); err != nil {
		return nil, "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="proof_image"; filename="proof.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var errEmptyToken = errors.New("backend: empty token")
