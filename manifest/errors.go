package manifest

import (
	"errors"
	"strings"
)

// ErrInvalid is the sentinel wrapped by every *ConfigError.
var ErrInvalid = errors.New("manifest: invalid configuration")

// ConfigError reports every problem found while loading or resolving a
// manifest. It is fatal at startup.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "manifest: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigError) Unwrap() error { return ErrInvalid }
