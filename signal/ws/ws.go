// Package ws provides a signal pushed by a WebSocket server.
//
// Text frames are decoded as JSON and binary frames as MessagePack. The
// decoded document, or the result of an optional jq query over it, becomes
// the value of the signal.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Darkness4/debounce-go/signal"
	"github.com/Darkness4/debounce-go/utils/try"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shamaton/msgpack/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "signal/ws"

// ErrUnsupportedMessage is returned for frames that are neither text nor
// binary.
var ErrUnsupportedMessage = errors.New("unsupported message type")

// Option configures a Signal.
type Option func(*options)

type options struct {
	query      string
	initial    string
	tries      int
	delay      time.Duration
	maxBackoff time.Duration
}

// WithQuery extracts the value from each message with a jq expression.
func WithQuery(query string) Option {
	return func(o *options) {
		o.query = query
	}
}

// WithInitial sets the value of the signal before the first message.
func WithInitial(initial string) Option {
	return func(o *options) {
		o.initial = initial
	}
}

// WithDialRetry sets how many times and how fast dialing is retried.
func WithDialRetry(tries int, delay time.Duration, maxBackoff time.Duration) Option {
	return func(o *options) {
		o.tries = tries
		o.delay = delay
		o.maxBackoff = maxBackoff
	}
}

// Signal publishes the values pushed by a WebSocket server.
type Signal struct {
	*signal.Feed[string]
	client *http.Client
	url    string
	query  *signal.Query
	opts   *options
	log    zerolog.Logger
}

// New creates a Signal for the WebSocket endpoint at url.
func New(client *http.Client, url string, opts ...Option) (*Signal, error) {
	o := &options{
		tries:      10,
		delay:      time.Second,
		maxBackoff: time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	if client == nil {
		client = http.DefaultClient
	}
	s := &Signal{
		Feed:   signal.NewFeed(o.initial),
		client: client,
		url:    url,
		opts:   o,
		log:    log.With().Str("url", url).Logger(),
	}
	if o.query != "" {
		q, err := signal.ParseQuery(o.query)
		if err != nil {
			return nil, err
		}
		s.query = q
	}
	return s, nil
}

// Run connects to the server and publishes every message until ctx is done.
// The connection is reestablished when it drops.
func (s *Signal) Run(ctx context.Context) error {
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			return err
		}
		err = s.listen(ctx, conn)
		_ = conn.CloseNow()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Msg("websocket disconnected, reconnecting")
	}
}

func (s *Signal) dial(ctx context.Context) (conn *websocket.Conn, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ws.Dial", trace.WithAttributes(
		attribute.String("url", s.url),
	))
	defer span.End()

	err = try.DoExponentialBackoff(
		ctx,
		s.opts.tries,
		s.opts.delay,
		2,
		s.opts.maxBackoff,
		func(ctx context.Context) (err error) {
			conn, _, err = websocket.Dial(ctx, s.url, &websocket.DialOptions{
				HTTPClient: s.client,
			})
			return err
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	s.log.Info().Msg("websocket connected")
	return conn, nil
}

func (s *Signal) listen(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		v, err := Decode(typ, data)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to decode message")
			continue
		}
		value, err := s.extract(ctx, v)
		if err != nil {
			s.log.Error().Err(err).Any("message", v).Msg("failed to extract value")
			continue
		}
		s.log.Trace().Str("value", value).Msg("message received")
		s.Publish(value)
	}
}

func (s *Signal) extract(ctx context.Context, v any) (string, error) {
	if s.query == nil {
		return signal.Stringify(v)
	}
	return s.query.Extract(ctx, v)
}

// Decode decodes a frame into a document usable by a jq query.
func Decode(typ websocket.MessageType, data []byte) (any, error) {
	var v any
	switch typ {
	case websocket.MessageText:
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case websocket.MessageBinary:
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return normalize(v), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMessage, typ)
	}
}

// normalize converts MessagePack documents to the types produced by
// encoding/json.
func normalize(v any) any {
	switch v := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case uint:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
