// Package domain defines the core entities of the ingestion pipeline.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileData: identity and metadata for one document flowing through the pipeline
//   - Source / Destination: configured connector endpoints
//   - The error taxonomy: connection, write, item-not-found and configuration errors
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
