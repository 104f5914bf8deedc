// Package version holds the release version. Bump it with every tagged
// release.
package version

const Current = "0.1.0"
