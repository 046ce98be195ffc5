package utils

import (
	"context"
	"errors"
)

// GetFirstValuableErrorOrFirst returns the first error that is not nil and not
// a context error. If not found, returns the first non-nil error.
func GetFirstValuableErrorOrFirst(errs []error) error {
	var nonNilErr error
	for _, err := range errs {
		if err != nil {
			if nonNilErr == nil {
				nonNilErr = err
			}
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
		}
	}
	return nonNilErr
}
