// Package utils provides helpers shared by the signal sources and commands.
package utils

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
)

// JSONDecodeAndPrintOnError decodes JSON from the reader and logs the raw JSON on error.
func JSONDecodeAndPrintOnError(r io.Reader, v any) error {
	var rawData bytes.Buffer
	tee := io.TeeReader(r, &rawData)

	if err := json.NewDecoder(tee).Decode(v); err != nil {
		log.Err(err).Str("raw_message", rawData.String()).Msg("failed to decode JSON")
		return err
	}
	return nil
}
