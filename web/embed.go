// Package web embeds the static page shell and provides an HTTP handler
// that serves it. The pages are thin: they render the forms and talk to
// the JSON API, which owns all behavior.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:static
var staticFS embed.FS

// pageRoutes maps clean paths to embedded pages.
var pageRoutes = map[string]string{
	"/":         "index.html",
	"/login":    "login.html",
	"/register": "register.html",
	"/chat":     "chat.html",
	"/wallbed":  "wallbed.html",
}

// PageHandler returns an http.Handler serving the embedded pages and
// assets. Unknown paths fall back to the home page.
func PageHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if page, ok := pageRoutes[r.URL.Path]; ok {
			r.URL.Path = "/" + page
			fileServer.ServeHTTP(w, r)
			return
		}

		// Serve other embedded assets directly when they exist.
		path := strings.TrimPrefix(r.URL.Path, "/")
		if f, err := subFS.Open(path); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
