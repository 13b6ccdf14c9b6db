package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/metrics"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
	"go.opentelemetry.io/otel/trace"
)

// maxErrorBody bounds how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

type options struct {
	timeout      time.Duration
	base         http.RoundTripper
	logger       logging.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	interceptors []Interceptor
}

type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBaseTransport replaces http.DefaultTransport, mostly for tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithInterceptors adds interceptors outside the base chain.
func WithInterceptors(in ...Interceptor) Option {
	return func(o *options) { o.interceptors = append(o.interceptors, in...) }
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL *url.URL
	inner   http.RoundTripper
	http    *http.Client
	logger  logging.Logger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	o := options{
		timeout: 15 * time.Second,
		base:    http.DefaultTransport,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	inner := Chain(o.base,
		RequestID(),
		Tracing(o.tracer),
		Logging(o.logger),
		Metrics(o.metrics),
	)

	c := &Client{
		baseURL: u,
		inner:   inner,
		logger:  o.logger,
		http: &http.Client{
			Timeout:   o.timeout,
			Transport: Chain(inner, o.interceptors...),
		},
	}
	return c, nil
}

// With returns a Client sharing the base chain and timeout, with extra
// interceptors in front of it. The receiver is unchanged.
func (c *Client) With(interceptors ...Interceptor) *Client {
	return &Client{
		baseURL: c.baseURL,
		inner:   c.inner,
		logger:  c.logger,
		http: &http.Client{
			Timeout:   c.http.Timeout,
			Transport: Chain(c.inner, interceptors...),
		},
	}
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// NewRequest builds a request with a JSON body. The body is replayable
// (GetBody is set), which the refresh coordinator relies on for retries.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req through the chain. Transport failures wrap common.ErrNetwork.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, common.ErrNetwork, err)
	}
	return resp, nil
}

// DoJSON sends body to path and decodes a 2xx answer into out (if non-nil).
// Extra headers are applied as given.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, header http.Header) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: empty body: %w", method, path, common.ErrMalformedResponse)
		}
		return fmt.Errorf("%s %s: decode: %w: %w", method, path, common.ErrMalformedResponse, err)
	}
	return nil
}
