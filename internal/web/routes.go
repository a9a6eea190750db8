package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/static"
)

func (s *Server) setupRoutes() {
	workflowHandler := handlers.NewWorkflowHandler(s.workflow)
	timeout := s.config.Gateway.Timeout*2 + time.Minute

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1/workflow", func(r chi.Router) {
		// Streaming, no request timeout.
		r.Get("/events", workflowHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(timeout))

			r.Get("/", workflowHandler.State)
			r.Get("/image", workflowHandler.Image)
			r.Post("/image", workflowHandler.LoadImage)
			r.Post("/camera", workflowHandler.ToggleCamera)
			r.Post("/capture", workflowHandler.Capture)
			r.Post("/submit", workflowHandler.Submit)
			r.Post("/retry", workflowHandler.Retry)
			r.Post("/reset", workflowHandler.Reset)
		})
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves the embedded kiosk page.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.Index()
	if err != nil {
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
