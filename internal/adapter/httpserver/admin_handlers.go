package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// MountAdmin attaches the operator report endpoints under /admin, guarded by
// the bearer token.
func (s *Server) MountAdmin(r chi.Router) {
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(s.AdminGuard())
		ar.Get("/faults", s.FaultsHandler())
		ar.Post("/faults/reset", s.FaultsResetHandler())
		ar.Get("/throttle", s.ThrottleHandler())
		ar.Get("/tokens", s.TokensHandler())
	})
}

// FaultsHandler snapshots the per-kind fault counters.
func (s *Server) FaultsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"faults": s.Dispatcher.Boundary.Counters(),
		})
	}
}

// FaultsResetHandler zeroes the fault counters.
func (s *Server) FaultsResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.Dispatcher.Boundary.Reset()
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// ThrottleHandler snapshots admission gate state.
func (s *Server) ThrottleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		now := time.Now()
		writeJSON(w, http.StatusOK, map[string]int{
			"active_bans":     s.Dispatcher.Gate.ActiveBans(now),
			"tracked_callers": s.Dispatcher.Gate.Tracked(),
		})
	}
}

// TokensHandler reports cumulative AI token consumption.
func (s *Server) TokensHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var total int64
		if s.Tokens != nil {
			total = s.Tokens.TokensConsumed()
		}
		writeJSON(w, http.StatusOK, map[string]int64{"tokens_consumed": total})
	}
}
