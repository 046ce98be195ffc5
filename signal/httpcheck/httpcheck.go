// Package httpcheck provides a signal sampled from an HTTP endpoint.
package httpcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Darkness4/debounce-go/signal"
	"github.com/Darkness4/debounce-go/utils"
	"github.com/Darkness4/debounce-go/utils/try"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnexpectedStatus is returned when a query is set and the endpoint does
// not answer with a 2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Option configures a Checker.
type Option func(*options)

type options struct {
	query   string
	tries   int
	delay   time.Duration
	timeout time.Duration
}

// WithQuery extracts the value from the JSON body with a jq expression
// instead of using the status code.
func WithQuery(query string) Option {
	return func(o *options) {
		o.query = query
	}
}

// WithTries sets the number of tries per sample.
func WithTries(tries int) Option {
	return func(o *options) {
		o.tries = tries
	}
}

// WithTimeout sets the timeout of a request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		tries:   3,
		delay:   100 * time.Millisecond,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewClient returns an HTTP client traced with OpenTelemetry.
func NewClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Checker samples an HTTP endpoint.
type Checker struct {
	*http.Client
	url   string
	query *signal.Query
	opts  *options
	log   zerolog.Logger
}

// New creates a Checker for url. If client is nil, NewClient is used.
func New(client *http.Client, url string, opts ...Option) (*Checker, error) {
	if client == nil {
		client = NewClient()
	}
	o := applyOptions(opts)
	c := &Checker{
		Client: client,
		url:    url,
		opts:   o,
		log:    log.With().Str("url", url).Logger(),
	}
	if o.query != "" {
		q, err := signal.ParseQuery(o.query)
		if err != nil {
			return nil, err
		}
		c.query = q
	}
	return c, nil
}

// Sample requests the endpoint and returns its value. Failed requests are
// retried.
func (c *Checker) Sample(ctx context.Context) (string, error) {
	return try.DoWithContextTimeoutWithResult(
		ctx,
		c.opts.tries,
		c.opts.delay,
		c.opts.timeout,
		func(ctx context.Context, _ int) (string, error) {
			return c.fetch(ctx)
		},
	)
}

// Poller returns a probe sampling the endpoint every interval.
func (c *Checker) Poller(interval time.Duration) *signal.Poller[string] {
	return signal.NewPoller(c.Sample, interval, signal.WithLogger(c.log))
}

func (c *Checker) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if c.query == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return strconv.Itoa(resp.StatusCode), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error().
			Int("response.status", resp.StatusCode).
			Str("response.body", string(body)).
			Msg("http error")
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body any
	if err := utils.JSONDecodeAndPrintOnError(resp.Body, &body); err != nil {
		return "", err
	}
	return c.query.Extract(ctx, body)
}
