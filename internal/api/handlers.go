package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-fuego/fuego"

	"github.com/blockedby/listingbot/internal/listing"
)

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(c.Context()); err != nil {
			return HealthResponse{}, fuego.HTTPError{
				Title:  "Storage Unavailable",
				Status: http.StatusServiceUnavailable,
				Detail: err.Error(),
			}
		}
	}
	return HealthResponse{Status: "ok", Version: s.cfg.Version}, nil
}

func (s *Server) getStats(c fuego.ContextNoBody) (StatsResponse, error) {
	resp := StatsResponse{
		EventLog:   countersOf(s.deps.EventLog),
		ListingLog: countersOf(s.deps.ListingLog),
	}
	if s.deps.Stats != nil {
		stats, err := s.deps.Stats.GetStats(c.Context())
		if err != nil {
			return StatsResponse{}, fuego.InternalServerError{Detail: err.Error()}
		}
		resp.Listings = stats
	}
	return resp, nil
}

func countersOf(c Counter) LogCounters {
	if c == nil {
		return LogCounters{}
	}
	return LogCounters{Written: c.Written(), Dropped: c.Dropped()}
}

func (s *Server) postDebug(c fuego.ContextWithBody[DebugRequest]) (DebugResponse, error) {
	body, err := c.Body()
	if err != nil {
		return DebugResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	note := strings.TrimSpace(body.Note)
	if note == "" {
		return DebugResponse{}, fuego.BadRequestError{Detail: "note is required"}
	}

	if err := s.deps.Notes.Debug(c.Context(), note); err != nil {
		return DebugResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}
	return DebugResponse{Status: "logged"}, nil
}

func (s *Server) getListing(c fuego.ContextNoBody) (ListingResponse, error) {
	uid := c.PathParam("uid")

	l, err := s.deps.Listings.GetByUID(c.Context(), uid)
	if err != nil && !errors.Is(err, listing.ErrNotFound) {
		return ListingResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}
	if l == nil {
		return ListingResponse{}, fuego.NotFoundError{Detail: "Listing not found"}
	}

	return ListingFromDomain(l), nil
}
