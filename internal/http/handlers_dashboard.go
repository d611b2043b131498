package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request, user core.User) {
	key := user.ID + ":summary"
	if totals, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, totals)
		return
	}

	totals := s.reports.Summary(r.Context(), user.ID)
	s.summaryCache.Set(key, totals)
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleDashboardWeekly(w http.ResponseWriter, r *http.Request, user core.User) {
	key := user.ID + ":weekly"
	if series, ok := s.seriesCache.Get(key); ok {
		writeJSON(w, http.StatusOK, series)
		return
	}

	series := s.reports.Weekly(r.Context(), user.ID)
	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleDashboardMonthly(w http.ResponseWriter, r *http.Request, user core.User) {
	key := user.ID + ":monthly"
	if series, ok := s.seriesCache.Get(key); ok {
		writeJSON(w, http.StatusOK, series)
		return
	}

	series := s.reports.Monthly(r.Context(), user.ID)
	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}
