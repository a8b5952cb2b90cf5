package domain

import "fmt"

// Source describes a configured document source: which connector type reads
// it and the connector-specific settings that connector needs.
type Source struct {
	// ID is the unique identifier for the source within a workflow.
	ID string

	// Type identifies the connector type (e.g., "local", "sqlite", "github").
	Type string

	// Config contains connector-specific configuration as raw string
	// key/value pairs. Each connector parses and eagerly validates its own
	// typed config from this map.
	Config map[string]string
}

// Validate checks the fields every source needs before a connector config is
// even parsed.
func (s Source) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("%w: source missing connector type", ErrInvalidConfig)
	}
	return nil
}

// Destination describes a configured upload target.
type Destination struct {
	// ID is the unique identifier for the destination within a workflow.
	ID string

	// Type identifies the connector type (e.g., "sqlite", "redis", "mongodb").
	Type string

	// Config contains connector-specific configuration as raw string
	// key/value pairs.
	Config map[string]string
}

// Validate checks the fields every destination needs.
func (d Destination) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("%w: destination missing connector type", ErrInvalidConfig)
	}
	return nil
}
