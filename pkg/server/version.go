package server

// Version is the GoMUD version string.
// Override at build time with: go build -ldflags "-X github.com/crystal-mush/gomud/pkg/server.Version=0.2.0"
var Version = "0.1.0"

// VersionString returns the full version display string.
func VersionString() string {
	return "GoMUD " + Version
}
