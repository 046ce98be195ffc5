// Package file provides a signal observing the content of a file.
package file

import (
	"context"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Darkness4/debounce-go/signal"
	"github.com/fsnotify/fsnotify"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// Missing is the value of the signal when the file does not exist.
const Missing = ""

// Option configures a Signal.
type Option func(*options)

type options struct {
	mime bool
}

// WithMIME reports the detected MIME type of the file instead of the digest
// of its content.
func WithMIME() Option {
	return func(o *options) {
		o.mime = true
	}
}

// Signal publishes the state of a file whenever the file is written, created,
// renamed or removed.
//
// The value is the hex BLAKE2b-256 digest of the content, or the MIME type
// with WithMIME. A missing file has the value Missing.
type Signal struct {
	*signal.Feed[string]
	path string
	mime bool
	log  zerolog.Logger
}

// New creates a Signal for path and samples it once.
func New(path string, opts ...Option) (*Signal, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	path = filepath.Clean(path)
	initial, err := Sample(path, o.mime)
	if err != nil {
		return nil, err
	}
	return &Signal{
		Feed: signal.NewFeed(initial),
		path: path,
		mime: o.mime,
		log:  log.With().Str("path", path).Logger(),
	}, nil
}

// Sample reads the current value of the file at path.
func Sample(path string, mime bool) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Missing, nil
	}
	if err != nil {
		return "", err
	}
	if mime {
		return mimetype.Detect(data).String(), nil
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Run watches the parent directory of the file and publishes every change
// until ctx is done.
func (s *Signal) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory is watched so that atomic replacements are observed.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	s.log.Debug().Msg("watching file")

	s.resample()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			s.log.Trace().Stringer("op", event.Op).Msg("file event")
			s.resample()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (s *Signal) resample() {
	v, err := Sample(s.path, s.mime)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sample file")
		return
	}
	s.Publish(v)
}
