package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
)

// assetsFS embeds whatever static UI bundle lives under app/dist at
// build time. The browser UI itself is out of scope, so this
// directory ships only a placeholder index.html; the route contract still exists so a chain
// node's reverse proxy config doesn't need to know the difference.
//
//go:embed app/dist
var assetsFS embed.FS

func staticAssetsHandler() http.Handler {
	sub, err := fs.Sub(assetsFS, "app/dist")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/app", http.FileServer(http.FS(sub)))
}
