package server

import (
	"net/http"

	"plot-twist/internal/web"

	"github.com/a-h/templ"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	templ.Handler(web.Home()).ServeHTTP(w, r)
}
