package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Darkness4/debounce-go/debounce"
	"github.com/Darkness4/debounce-go/signal/file"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	tests := []struct {
		title    string
		content  []byte
		mime     bool
		expected string
	}{
		{
			title:    "missing file",
			expected: file.Missing,
		},
		{
			title:    "digest",
			content:  []byte("pressed"),
			expected: "143ec452516a67ca5a437d788fc0f9bc86d37e88346dae9a49b68e0b01492014",
		},
		{
			title:    "mime",
			content:  []byte(`{"pressed": true}`),
			mime:     true,
			expected: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			// Arrange
			_ = os.Remove(path)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, tt.content, 0o600))
			}

			// Act
			actual, err := file.Sample(path, tt.mime)

			// Assert
			require.NoError(t, err)
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestSignalDebounce(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "button")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := file.New(path)
	require.NoError(t, err)
	require.Equal(t, file.Missing, s.Value())
	go func() {
		_ = s.Run(ctx)
	}()
	expected, err := func() (string, error) {
		time.Sleep(100 * time.Millisecond)
		if err := os.WriteFile(path, []byte("pressed"), 0o600); err != nil {
			return "", err
		}
		return file.Sample(path, false)
	}()
	require.NoError(t, err)

	// Act
	result, err := debounce.Debounce[string](ctx, s, file.Missing, debounce.Sleep(100*time.Millisecond))

	// Assert
	require.NoError(t, err)
	require.Equal(t, expected, result)
}
