package registry

import "errors"

var (
	// ErrUnsupportedSchema is returned when an operation does not apply to the
	// registry's schema, e.g. a parallel scan of a legacy list.
	ErrUnsupportedSchema = errors.New("operation unsupported for registry schema")
	// ErrUnknownSchema is returned when auto-detection recognizes neither layout.
	ErrUnknownSchema = errors.New("unrecognized registry schema")
)
