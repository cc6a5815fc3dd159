package errors

import (
	"errors"
)

// Is is a wrapper around errors.Is so callers don't need to alias the
// standard library package next to this one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
