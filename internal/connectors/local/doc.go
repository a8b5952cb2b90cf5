// Package local implements the filesystem connector. As a source it
// enumerates and copies files under a root directory; as a destination it
// drops staged element files into an output directory.
//
// It needs no credentials and no network, which also makes it the reference
// connector for pipeline and fixture tests.
package local
