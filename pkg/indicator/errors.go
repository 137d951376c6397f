package indicator

import "errors"

var (
	// ErrUnknownIndicator is returned for a type missing from the catalog
	ErrUnknownIndicator = errors.New("unknown indicator type")

	// ErrInvalidConfig is returned when a config value has the wrong type or
	// names an option the field does not offer
	ErrInvalidConfig = errors.New("invalid indicator config")

	// ErrUnknownField is returned for config keys the schema does not declare
	ErrUnknownField = errors.New("unknown config field")

	// ErrDuplicateIndicator is returned when a type is registered twice
	ErrDuplicateIndicator = errors.New("indicator type already registered")
)
