// Package server exposes the discount ranking over HTTP.
package server

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/components/telemetry"
	"bookmeter-discounts/internal/discounts"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	report_server_discounts = "server.discounts"
	report_server_encode    = "server.encode"
)

type Ranking interface {
	Discounts(ctx context.Context, limit int) ([]catalog.Entry, error)
}

type Server struct {
	ranking      Ranking
	defaultLimit int
	tel          telemetry.API
}

func NewServer(ranking Ranking, defaultLimit int, tel telemetry.API) Server {
	return Server{
		ranking:      ranking,
		defaultLimit: defaultLimit,
		tel:          telemetry.NewScopedAPI("server", tel),
	}
}

// Handler routes `GET /` to the ranking and `GET /healthz` to a liveness
// probe.
func (s Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDiscounts)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

func (s Server) handleDiscounts(w http.ResponseWriter, r *http.Request) {
	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.ranking.Discounts(r.Context(), limit)
	if err != nil {
		s.tel.ReportBroken(report_server_discounts, err, limit)
		http.Error(w, "failed to query discounts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("content-type", "application/json")
	err = json.NewEncoder(w).Encode(discounts.NewDiscounts(entries))
	if err != nil {
		s.tel.ReportWarning(report_server_encode, err)
	}
}
