package manifest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the manifest package
var (
	// ErrManifestNotFound indicates the manifest file does not exist
	ErrManifestNotFound = errors.New("manifest file not found")
)

// ParseError indicates the manifest content does not conform to the schema.
type ParseError struct {
	Format string // "toml", "json" or "yaml"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s manifest: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
