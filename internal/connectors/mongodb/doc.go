// Package mongodb implements the MongoDB connector. As a source it
// enumerates a collection's documents by _id and downloads each as the
// newline-joined values of its fields (excluding _id); as a destination it
// insert-many's staged records in batches.
package mongodb
