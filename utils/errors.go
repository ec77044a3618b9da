package utils

import "github.com/pkg/errors"

// NewConfigValidationError returns an error specifying that the config at path is invalid.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specifying that field is required in
// the config at path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// NewConfigValidationRangeError returns an error specifying that field is outside [lo, hi].
func NewConfigValidationRangeError(path, field string, lo, hi float64) error {
	return NewConfigValidationError(path, errors.Errorf("%q must be within [%g, %g]", field, lo, hi))
}
