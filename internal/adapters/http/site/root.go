// Package site serves the embedded standings viewer.
package site

import (
	"context"
	"net/http"
)

// Register attaches the viewer routes to mux: the page at "/" and its assets
// under "/static/". Other unknown paths still fall through to 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("GET /static/", http.StripPrefix("/static/", files))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFS, "static/index.html")
	})
}
