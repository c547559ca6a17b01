package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rps-arena/pkg/logger"
)

// NewRouter wraps the handler routes in the standard middleware stack
func NewRouter(h *Handler, log *logger.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(log))
	router.Use(middleware.Recoverer)

	router.Mount("/", h.Routes())
	return router
}
