package watch

import (
	"context"
	"net/http"

	"github.com/Darkness4/debounce-go/debounce"
	"github.com/Darkness4/debounce-go/signal/file"
	"github.com/Darkness4/debounce-go/signal/httpcheck"
	"github.com/Darkness4/debounce-go/signal/ws"
)

// source is a probe plus what is needed to drive it.
type source struct {
	probe debounce.Probe[string]
	// initial returns the value used as baseline when none is configured.
	initial func(ctx context.Context) (string, error)
	// run feeds the probe until ctx is done. Nil for polled sources.
	run func(ctx context.Context) error
}

func newSource(client *http.Client, params *Params) (*source, error) {
	switch params.Type {
	case SignalTypeFile:
		var opts []file.Option
		if params.MIME {
			opts = append(opts, file.WithMIME())
		}
		s, err := file.New(params.Path, opts...)
		if err != nil {
			return nil, err
		}
		return &source{
			probe: s,
			initial: func(context.Context) (string, error) {
				return s.Value(), nil
			},
			run: s.Run,
		}, nil

	case SignalTypeWS:
		var opts []ws.Option
		if params.Query != "" {
			opts = append(opts, ws.WithQuery(params.Query))
		}
		if params.Baseline != nil {
			opts = append(opts, ws.WithInitial(*params.Baseline))
		}
		s, err := ws.New(client, params.URL, opts...)
		if err != nil {
			return nil, err
		}
		return &source{
			probe: s,
			// Nothing is known before the server pushes its first message.
			initial: s.WaitPublished,
			run:     s.Run,
		}, nil

	case SignalTypeHTTP:
		var opts []httpcheck.Option
		if params.Query != "" {
			opts = append(opts, httpcheck.WithQuery(params.Query))
		}
		c, err := httpcheck.New(client, params.URL, opts...)
		if err != nil {
			return nil, err
		}
		return &source{
			probe:   c.Poller(params.PollInterval),
			initial: c.Sample,
		}, nil
	}
	return nil, ErrUnknownSignalType
}
