// Package driven defines the interfaces every connector must satisfy.
//
// A source connector provides an Indexer and a Downloader; a destination
// connector provides an UploadStager and an Uploader. The pipeline drives
// these interfaces and never touches a concrete connector type.
//
// All blocking operations take a context.Context; connectors surface remote
// timeouts as typed connection errors rather than hanging.
package driven
