package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Darkness4/debounce-go/notify"
	"github.com/Darkness4/debounce-go/utils/channel"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const configDebounce = 200 * time.Millisecond

// Config is the watcher configuration.
type Config struct {
	Notifier      NotifierConfig            `yaml:"notifier,omitempty"`
	DefaultParams OptionalParams            `yaml:"defaultParams,omitempty"`
	Signals       map[string]OptionalParams `yaml:"signals"`
}

// NotifierConfig selects where notifications are sent.
type NotifierConfig struct {
	Enabled             bool                       `yaml:"enabled,omitempty"`
	Gotify              GotifyConfig               `yaml:"gotify,omitempty"`
	URLs                []string                   `yaml:"urls,omitempty"`
	NotificationFormats notify.NotificationFormats `yaml:"notificationFormats,omitempty"`
}

// GotifyConfig configures a Gotify server.
type GotifyConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
}

// SignalParams returns the validated params of every signal, with the
// defaults applied.
func (c *Config) SignalParams() (map[string]*Params, error) {
	defaults := DefaultParams.Clone()
	c.DefaultParams.Override(defaults)

	out := make(map[string]*Params, len(c.Signals))
	for name, override := range c.Signals {
		params := defaults.Clone()
		override.Override(params)
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		out[name] = params
	}
	return out, nil
}

func loadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{}
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if _, err := config.SignalParams(); err != nil {
		return nil, err
	}
	return config, nil
}

// ObserveConfig sends the config on configChan once at start and every time
// the file changes. Bursts of events are coalesced.
func ObserveConfig(ctx context.Context, filename string, configChan chan<- *Config) {
	filename = filepath.Clean(filename)
	log := log.With().Str("file", filename).Logger()

	send := func() bool {
		config, err := loadConfig(filename)
		if err != nil {
			log.Error().Err(err).Msg("failed to load config")
			return true
		}
		select {
		case configChan <- config:
			return true
		case <-ctx.Done():
			return false
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Panic().Err(err).Msg("failed to create config watcher")
	}
	defer watcher.Close()

	// The directory is watched so that editors replacing the file are observed.
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		log.Panic().Err(err).Msg("failed to watch config directory")
	}

	events := make(chan fsnotify.Event)
	debounced := channel.Debounce(events, configDebounce)
	defer func() {
		close(events)
		for range debounced {
		}
	}()

	if !send() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filename ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		case <-debounced:
			log.Info().Msg("new config detected")
			if !send() {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

// ConfigReloader runs handleConfig for every config received, cancelling the
// previous run first.
func ConfigReloader(
	ctx context.Context,
	configChan <-chan *Config,
	handleConfig func(ctx context.Context, config *Config),
) error {
	var configContext context.Context
	var configCancel context.CancelFunc
	// Channel used to assure only one handleConfig can be launched
	doneChan := make(chan struct{})

	for {
		select {
		case newConfig := <-configChan:
			if configContext != nil && configCancel != nil {
				configCancel()
				select {
				case <-doneChan:
					log.Info().Msg("loading new config")
				case <-time.After(30 * time.Second):
					log.Fatal().Msg("couldn't load a new config because of a deadlock")
				}
			}
			configContext, configCancel = context.WithCancel(ctx)
			go func(ctx context.Context) {
				log.Info().Msg("loaded new config")
				handleConfig(ctx, newConfig)
				doneChan <- struct{}{}
			}(configContext)
		case <-ctx.Done():
			if configContext != nil && configCancel != nil {
				configCancel()
				configContext = nil

				// This assure that the `handleConfig` ends gracefully
				select {
				case <-doneChan:
					log.Info().Msg("config reloader graceful exit")
				case <-time.After(30 * time.Second):
					log.Fatal().Msg("config reloader force fatal exit")
				}
			}

			// The context was canceled, exit the loop
			return ctx.Err()
		}
	}
}
