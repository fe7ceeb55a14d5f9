package main

import (
	"fmt"
	"net/http"

	"github.com/mcdev12/ladders/go/internal/gateway"
	"github.com/mcdev12/ladders/go/internal/lobby"
	"github.com/mcdev12/ladders/go/internal/matchmaking"
	"github.com/mcdev12/ladders/go/internal/turn"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(port string, services *Services, cm *gateway.ConnectionManager) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Error-Code"},
	})

	registerServices(mux, services)

	gateway.NewWebSocketHandler(cm).RegisterRoutes(mux)
	gateway.NewStateHandler(services.TurnApp).RegisterStateRoutes(mux)

	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	mux.Handle(lobby.NewHandler(services.Lobby))
	mux.Handle(turn.NewHandler(services.Turn))
	mux.Handle(matchmaking.NewHandler(services.Matchmaking))
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
