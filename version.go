// Package conceptanalytics provides the version information for the concept
// analytics server.
package conceptanalytics

// Version is the current release of the concept analytics server.
const Version = "0.3.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
