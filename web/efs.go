package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed templates/* static/*
var distFS embed.FS

// GetFileSystem returns the form templates and static assets.
func GetFileSystem() (fs.FS, error) {
	// 1. Dev mode: Serve from disk
	if dir := os.Getenv("FRONTEND_DIR"); dir != "" {
		return os.DirFS(dir), nil
	}

	// 2. Production mode: Serve embedded files
	return distFS, nil
}
