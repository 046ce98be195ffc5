package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Darkness4/debounce-go/cmd/watch"
	"github.com/stretchr/testify/require"
)

func TestConfigReloader(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configFile, []byte(`signals:
  api:
    url: http://localhost:8080/health
    labels:
      team: core
`), 0o644)
	require.NoError(t, err)

	configChan := make(chan *watch.Config)
	go watch.ObserveConfig(ctx, configFile, configChan)

	handleConfigCallCount := 0
	handleConfigCalls := make([]*watch.Config, 2)
	doneChan := make(chan struct{})
	handleConfigMock := func(ctx context.Context, cfg *watch.Config) {
		handleConfigCalls[handleConfigCallCount] = cfg
		handleConfigCallCount++
		select {
		case doneChan <- struct{}{}:
			return
		case <-ctx.Done():
			return
		}
	}

	// Act
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := watch.ConfigReloader(ctx, configChan, handleConfigMock)
		require.Equal(t, context.Canceled, err)
	}()

	<-doneChan

	err = os.WriteFile(configFile, []byte(`signals:
  api:
    url: http://localhost:8080/health
  door:
    type: file
    path: /tmp/door
`), 0o644)
	require.NoError(t, err)

	<-doneChan

	// Assert
	require.Equal(t, 2, handleConfigCallCount)
	require.Len(t, handleConfigCalls[0].Signals, 1)
	require.Len(t, handleConfigCalls[1].Signals, 2)

	cancel()
	wg.Wait()
}

func TestObserveConfigSkipsInvalid(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`signals:
  api:
    type: carrier-pigeon
`), 0o644))

	configChan := make(chan *watch.Config)
	go watch.ObserveConfig(ctx, configFile, configChan)
	time.Sleep(100 * time.Millisecond)

	// Act
	require.NoError(t, os.WriteFile(configFile, []byte(`signals:
  api:
    url: http://localhost:8080/health
`), 0o644))

	// Assert
	select {
	case config := <-configChan:
		require.Contains(t, config.Signals, "api")
	case <-ctx.Done():
		t.Fatal("config was not reloaded")
	}
}

func TestSignalParams(t *testing.T) {
	stableWait := 5 * time.Second
	pollInterval := 3 * time.Second
	url := "http://localhost/health"
	baseline := "200"
	fileType := watch.SignalTypeFile
	path := "/tmp/door"

	tests := []struct {
		name     string
		config   watch.Config
		expected map[string]*watch.Params
		isError  bool
	}{
		{
			name: "defaults are applied",
			config: watch.Config{
				DefaultParams: watch.OptionalParams{
					PollInterval: &pollInterval,
					Labels:       map[string]string{"env": "prod"},
				},
				Signals: map[string]watch.OptionalParams{
					"api": {
						URL:        &url,
						Baseline:   &baseline,
						StableWait: &stableWait,
						Labels:     map[string]string{"team": "core"},
					},
				},
			},
			expected: map[string]*watch.Params{
				"api": {
					Type:         watch.SignalTypeHTTP,
					URL:          url,
					Baseline:     &baseline,
					StableWait:   stableWait,
					PollInterval: pollInterval,
					Labels:       map[string]string{"env": "prod", "team": "core"},
				},
			},
		},
		{
			name: "file",
			config: watch.Config{
				Signals: map[string]watch.OptionalParams{
					"door": {Type: &fileType, Path: &path},
				},
			},
			expected: map[string]*watch.Params{
				"door": {
					Type:         watch.SignalTypeFile,
					Path:         path,
					StableWait:   watch.DefaultParams.StableWait,
					PollInterval: watch.DefaultParams.PollInterval,
					Labels:       map[string]string{},
				},
			},
		},
		{
			name: "file without path",
			config: watch.Config{
				Signals: map[string]watch.OptionalParams{
					"door": {Type: &fileType},
				},
			},
			isError: true,
		},
		{
			name: "http without url",
			config: watch.Config{
				Signals: map[string]watch.OptionalParams{
					"api": {},
				},
			},
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			actual, err := tt.config.SignalParams()

			// Assert
			if tt.isError {
				require.ErrorIs(t, err, watch.ErrMissingSource)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestSignalParamsDoesNotMutateDefaults(t *testing.T) {
	// Arrange
	url := "http://localhost/health"
	config := watch.Config{
		Signals: map[string]watch.OptionalParams{
			"api": {URL: &url, Labels: map[string]string{"team": "core"}},
		},
	}

	// Act
	_, err := config.SignalParams()

	// Assert
	require.NoError(t, err)
	require.Empty(t, watch.DefaultParams.Labels)
}
