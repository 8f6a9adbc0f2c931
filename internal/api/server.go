// Package api serves the read-only status HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"

	"github.com/blockedby/listingbot/internal/listing"
	"github.com/blockedby/listingbot/internal/logger"
	"github.com/blockedby/listingbot/internal/repository"
)

// ListingReader looks listings up by uid.
type ListingReader interface {
	GetByUID(ctx context.Context, uid string) (*listing.Listing, error)
}

// DebugNotes records operator notes in the event log.
type DebugNotes interface {
	Debug(ctx context.Context, note string) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter exposes append-only log counters.
type Counter interface {
	Written() int64
	Dropped() int64
}

// StatsReader aggregates stored listings.
type StatsReader interface {
	GetStats(ctx context.Context) (*repository.ListingStats, error)
}

// Dependencies contains the services the handlers read from. Health and
// the counters are optional, as is Stats.
type Dependencies struct {
	Listings   ListingReader
	Notes      DebugNotes
	Stats      StatsReader
	Health     Pinger
	EventLog   Counter
	ListingLog Counter
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
}

// Server wraps the fuego server and its net/http lifecycle.
type Server struct {
	fuego      *fuego.Server
	deps       *Dependencies
	cfg        *Config
	handler    http.Handler
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates the server and registers all routes.
func NewServer(cfg *Config, deps *Dependencies, log *logger.Logger) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Recoverer)

	srv := &Server{
		fuego: s,
		deps:  deps,
		cfg:   cfg,
		log:   log,
	}

	srv.registerRoutes()
	srv.registerDocs()

	// CORS wraps the mux so preflight requests reach it for every path.
	srv.handler = cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})(s.Mux)

	// Built here so Stop never races Start over the field.
	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns ok when the listing store answers"),
		option.Tags("System"),
	)

	fuego.Get(s.fuego, "/api/v1/stats", s.getStats,
		option.Summary("Log Statistics"),
		option.Description("Returns listing counts and the written and dropped record counts of the append-only logs"),
		option.Tags("System"),
	)

	fuego.Post(s.fuego, "/api/v1/debug", s.postDebug,
		option.Summary("Debug Note"),
		option.Description("Appends a debug_info record to the event log"),
		option.Tags("System"),
	)

	fuego.Get(s.fuego, "/api/v1/listings/{uid}", s.getListing,
		option.Summary("Get Listing"),
		option.Description("Returns the aggregated listing stored under uid"),
		option.Tags("Listings"),
	)
}

func (s *Server) registerDocs() {
	s.fuego.Mux.Handle("GET /docs", ScalarHandler("/openapi.json", s.cfg.Title))
	s.fuego.Mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.fuego.OpenAPI.Description()); err != nil {
			http.Error(w, "failed to encode OpenAPI description", http.StatusInternalServerError)
		}
	})
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured port and serves until Stop. It returns
// http.ErrServerClosed once stopped, even when Stop ran first.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.log.Info().Str("addr", listener.Addr().String()).Msg("api: listening")
	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
