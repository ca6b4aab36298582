package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// FS exposes the standings viewer assets with the static/ prefix removed.
func FS() http.FileSystem {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(assets)
}
