package site

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// FS returns an http.FileSystem rooted at the embedded assets.
func FS() http.FileSystem {
	sub, err := Assets()
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// Assets returns the embedded assets as an fs.FS.
func Assets() (fs.FS, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServe, err)
	}
	return sub, nil
}
