package watch

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// SignalType is the kind of source a signal is read from.
type SignalType string

const (
	// SignalTypeHTTP polls an HTTP endpoint.
	SignalTypeHTTP SignalType = "http"
	// SignalTypeFile watches a file.
	SignalTypeFile SignalType = "file"
	// SignalTypeWS listens to a websocket.
	SignalTypeWS SignalType = "ws"
)

var (
	// ErrUnknownSignalType is returned when the type of a signal is not supported.
	ErrUnknownSignalType = errors.New("unknown signal type")
	// ErrMissingSource is returned when a signal has no URL or path.
	ErrMissingSource = errors.New("missing signal source")
)

// Params are the parameters of a watched signal.
type Params struct {
	Type         SignalType        `yaml:"type,omitempty"`
	URL          string            `yaml:"url,omitempty"`
	Path         string            `yaml:"path,omitempty"`
	MIME         bool              `yaml:"mime,omitempty"`
	Query        string            `yaml:"query,omitempty"`
	Baseline     *string           `yaml:"baseline,omitempty"`
	StableWait   time.Duration     `yaml:"stableWait,omitempty"`
	PollInterval time.Duration     `yaml:"pollInterval,omitempty"`
	Labels       map[string]string `yaml:"labels,omitempty"`
}

// OptionalParams are Params where every field may be omitted.
type OptionalParams struct {
	Type         *SignalType       `yaml:"type,omitempty"`
	URL          *string           `yaml:"url,omitempty"`
	Path         *string           `yaml:"path,omitempty"`
	MIME         *bool             `yaml:"mime,omitempty"`
	Query        *string           `yaml:"query,omitempty"`
	Baseline     *string           `yaml:"baseline,omitempty"`
	StableWait   *time.Duration    `yaml:"stableWait,omitempty"`
	PollInterval *time.Duration    `yaml:"pollInterval,omitempty"`
	Labels       map[string]string `yaml:"labels,omitempty"`
}

// DefaultParams is the set of default parameters.
var DefaultParams = Params{
	Type:         SignalTypeHTTP,
	StableWait:   2 * time.Second,
	PollInterval: time.Second,
	Labels:       map[string]string{},
}

// Clone returns a deep copy of the params.
func (p *Params) Clone() *Params {
	c := *p
	if p.Baseline != nil {
		b := *p.Baseline
		c.Baseline = &b
	}
	c.Labels = maps.Clone(p.Labels)
	if c.Labels == nil {
		c.Labels = map[string]string{}
	}
	return &c
}

// Override applies the set fields of override to params. Labels are merged.
func (override *OptionalParams) Override(params *Params) {
	if override.Type != nil {
		params.Type = *override.Type
	}
	if override.URL != nil {
		params.URL = *override.URL
	}
	if override.Path != nil {
		params.Path = *override.Path
	}
	if override.MIME != nil {
		params.MIME = *override.MIME
	}
	if override.Query != nil {
		params.Query = *override.Query
	}
	if override.Baseline != nil {
		b := *override.Baseline
		params.Baseline = &b
	}
	if override.StableWait != nil {
		params.StableWait = *override.StableWait
	}
	if override.PollInterval != nil {
		params.PollInterval = *override.PollInterval
	}
	if params.Labels == nil {
		params.Labels = map[string]string{}
	}
	maps.Copy(params.Labels, override.Labels)
}

// Validate checks that the params describe a usable signal.
func (p *Params) Validate() error {
	switch p.Type {
	case SignalTypeHTTP, SignalTypeWS:
		if p.URL == "" {
			return fmt.Errorf("%w: %s signal needs an url", ErrMissingSource, p.Type)
		}
	case SignalTypeFile:
		if p.Path == "" {
			return fmt.Errorf("%w: file signal needs a path", ErrMissingSource)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSignalType, p.Type)
	}
	if p.StableWait <= 0 {
		return fmt.Errorf("stableWait must be positive, got %s", p.StableWait)
	}
	if p.Type == SignalTypeHTTP && p.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive, got %s", p.PollInterval)
	}
	return nil
}
