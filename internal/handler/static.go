package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// apiPrefixes are never answered with the front-end shell.
var apiPrefixes = []string{"api/", "auth/api/", "admin/api/"}

// SPAHandler serves the built front end from staticDir. Unknown paths get
// index.html so client-side routes survive a reload.
type SPAHandler struct {
	staticDir string
	indexFile string
}

func NewSPAHandler(staticDir, indexFile string) *SPAHandler {
	if indexFile == "" {
		indexFile = "index.html"
	}
	return &SPAHandler{
		staticDir: staticDir,
		indexFile: indexFile,
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

	for _, prefix := range apiPrefixes {
		if rel+"/" == prefix || strings.HasPrefix(rel, prefix) {
			http.NotFound(w, r)
			return
		}
	}

	if rel != "" {
		filePath := filepath.Join(h.staticDir, filepath.FromSlash(rel))
		if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
			if strings.HasPrefix(rel, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			http.ServeFile(w, r, filePath)
			return
		}
	}

	indexPath := filepath.Join(h.staticDir, h.indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, indexPath)
}
