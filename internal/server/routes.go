// Package server wires HTTP handlers into a router for the roomchat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Routes configures and returns the HTTP handler with all application routes:
// health checks, the WebSocket endpoint, metrics and the room listing API.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", HealthHandler)
	router.HandleFunc("/healthz", HealthHandler)
	router.HandleFunc("/ws", s.WebSocketHandler)

	if s.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.RoomsHandler).Methods(http.MethodGet, http.MethodOptions)
	api.Use(cors.New(cors.Options{
		AllowedOrigins: s.origins.corsOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler)

	return router
}
