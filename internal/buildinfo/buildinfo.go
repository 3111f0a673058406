// Package buildinfo carries the values stamped into the binary at link time.
package buildinfo

import "time"

// Set via -ldflags at build time
var (
	BuildTime  string
	CommitHash string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Fields returns the build values for the health endpoint and startup log.
// Unset values are reported as "dev".
func Fields() map[string]string {
	return map[string]string{
		"buildTime":  orDev(BuildTime),
		"commitHash": orDev(CommitHash),
		"startTime":  StartTime,
	}
}

func orDev(s string) string {
	if s == "" {
		return "dev"
	}
	return s
}
