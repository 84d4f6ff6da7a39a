package normalize

import (
	"errors"
	"fmt"
)

// NormalizationError reports that a provider payload no longer carries a
// field the canonical mapping depends on. It is surfaced to the user as
// "could not read this title's data" and never retried.
type NormalizationError struct {
	Provider string
	Field    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s payload shape changed: missing %s", e.Provider, e.Field)
}

// IsShapeChanged reports whether err is a NormalizationError.
func IsShapeChanged(err error) bool {
	var ne *NormalizationError
	return errors.As(err, &ne)
}
