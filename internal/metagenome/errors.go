package metagenome

import "errors"

var (
	ErrUnknownGenome     = errors.New("unknown genome")
	ErrUnknownChromosome = errors.New("unknown chromosome")
	ErrNotSynchronized   = errors.New("chromosome not synchronized")
	ErrOutOfRange        = errors.New("position out of range")
)

// ConfigError reports an inconsistent genome or chromosome set. It is
// returned before any scan starts.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
