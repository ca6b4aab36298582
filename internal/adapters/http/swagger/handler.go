// Package swagger serves the API reference: the OpenAPI document and a ReDoc page.
package swagger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Register mounts the API reference on mux.
//
//	GET /api-docs     ReDoc page
//	GET /openapi.yaml embedded OpenAPI document
//
// Both responses carry an ETag derived from the document, so browsers
// revalidate instead of downloading it again.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	sum := sha256.Sum256(OpenAPI)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`

	mux.Handle("GET /api-docs", document(etag, "text/html; charset=utf-8", []byte(redocPage)))
	mux.Handle("GET /openapi.yaml", document(etag, "application/yaml; charset=utf-8", OpenAPI))
}

func document(etag, contentType string, body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	})
}

// The ReDoc bundle comes from its CDN; only the document itself is embedded.
const redocPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>jansou API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
