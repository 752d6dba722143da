// Package web serves the browser recorder.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

//go:embed static
var assets embed.FS

// Mount serves the recorder page at / and its scripts under /static/
func Mount(r chi.Router) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		// the embedded tree is fixed at build time
		panic(err)
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			log.Error().Err(err).Msg("Failed to read recorder page")
			http.Error(w, "recorder page unavailable", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(page)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
}
