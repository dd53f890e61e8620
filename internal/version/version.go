// Package version provides version information for alertwatch.
package version

// Version is the version of alertwatch. This can be overridden at build time using ldflags.
var Version = "development"

// Commit is the git commit hash. This can be overridden at build time using ldflags.
var Commit = "unknown"

// String returns the full version string including the commit hash if available.
func String() string {
	if Commit != "unknown" {
		return Version + "+" + Commit
	}
	return Version
}

// UserAgent returns the identifier sent in the WebSocket handshake.
func UserAgent() string {
	return "alertwatch/" + String()
}
