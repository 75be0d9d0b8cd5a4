package valuation

import (
	"errors"
	"fmt"

	"github.com/everforgeworks/growcalc/internal/catalog"
)

var (
	// ErrInvalidArgument is matched by every *InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned (wrapped in a *catalog.NotFoundError) for unknown
	// plant, variant or mutation names.
	ErrNotFound = catalog.ErrNotFound
)

// InvalidArgumentError describes a rejected request field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidArgument) match.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(field, format string, args ...any) error {
	return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
