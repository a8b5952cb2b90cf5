// Package sqlite implements the SQLite connector. As a source it treats each
// table row as one document, downloadable as the newline-joined values of its
// non-ID columns; as a destination it inserts staged element records in
// per-batch transactions.
package sqlite
