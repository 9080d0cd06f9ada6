package profile

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSourceUnreadable reports that the row source could not be opened,
	// iterated or decoded.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrNotTabular reports that the source has no header or column set.
	// A source with columns but zero data rows is valid.
	ErrNotTabular = errors.New("source is not tabular")

	// ErrEngineUsed is returned when Profile is called twice on one Engine.
	ErrEngineUsed = errors.New("profile engine already used")
)

// sourceErr classifies an error coming out of a RowSource. Errors already
// carrying one of the sentinels, and context errors, pass through unchanged.
func sourceErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrSourceUnreadable),
		errors.Is(err, ErrNotTabular),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, op, err)
}
