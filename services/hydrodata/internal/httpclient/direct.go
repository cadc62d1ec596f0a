package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DirectOptions configures a Direct client.
type DirectOptions struct {
	// Token, when set, is sent as a bearer token on every request.
	Token     string
	UserAgent string
	// Timeout is used for calls that pass no timeout of their own.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests, proxies).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Direct issues real network requests. Each call is a single attempt.
type Direct struct {
	client    *http.Client
	token     string
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDirect builds a Direct client. The http.Client is created once and
// reused so connections are kept alive between calls.
func NewDirect(opts DirectOptions) *Direct {
	d := &Direct{
		client:    opts.HTTPClient,
		token:     opts.Token,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Get fetches rawURL with params. Status codes >= 400 are returned as
// *HTTPError.
func (d *Direct) Get(ctx context.Context, rawURL string, params Params, timeout time.Duration) (*Response, error) {
	if rawURL == "" {
		return nil, errors.New("httpclient: empty url")
	}
	if timeout <= 0 {
		timeout = d.timeout
	}

	requestURL, err := buildURL(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("build request url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	d.logger.Debug("http get", "url", rawURL, "params", params, "timeout", timeout)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("http connection error", "url", rawURL, "error", err)
		return nil, &HTTPError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Error("http read error", "url", rawURL, "error", err)
		return nil, &HTTPError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	d.logger.Debug("http response", "url", rawURL, "status", resp.StatusCode, "bytes", len(content))

	if resp.StatusCode >= http.StatusBadRequest {
		httpErr := &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
		d.logger.Error(httpErr.Error())
		return nil, httpErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     flattenHeader(resp.Header),
		Content:    content,
	}, nil
}

func buildURL(rawURL string, params Params) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for key, value := range params {
		query.Set(key, formatParam(value))
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func formatParam(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}
