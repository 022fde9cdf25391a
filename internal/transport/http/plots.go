package http

import (
	"net/http"
	"path"
	"strings"
)

// PlotServer serves the PNG charts below dir. Anything else, directory
// listings included, is answered with 404.
func PlotServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(path.Ext(r.URL.Path), ".png") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
