package config

import (
	stderrors "errors"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/schema"
)

// validateDocument checks a raw decoded document against the embedded
// schema. Violations become CONFIG_VALIDATION errors whose "fields" detail
// lists the offending JSON pointers.
func validateDocument(raw map[string]interface{}, path string) error {
	validator, err := schema.NewValidator()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	err = validator.Validate(raw)
	if err == nil {
		return nil
	}
	wrapped := errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	var verr *schema.ValidationError
	if stderrors.As(err, &verr) {
		wrapped = wrapped.WithDetail("fields", verr.Paths())
	}
	if path != "" {
		wrapped = wrapped.WithDetail("path", path)
	}
	return wrapped
}
