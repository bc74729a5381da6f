package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatwoot/inboxq/internal/cli"
	"github.com/chatwoot/inboxq/internal/inbox"
	"github.com/chatwoot/inboxq/internal/location"
)

// StateResponse is the body of every state-returning endpoint.
type StateResponse struct {
	State    inbox.View `json:"state"`
	Location string     `json:"location"`
}

type fetchErrorResponse struct {
	Error    string     `json:"error"`
	State    inbox.View `json:"state"`
	Location string     `json:"location"`
}

type syncRequest struct {
	Query string `json:"query"`
}

type valueRequest[T any] struct {
	Value T `json:"value"`
}

type valuesRequest struct {
	Values []string `json:"values"`
}

type dateRangeRequest struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

type sortingRequest struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

type saveFilterRequest struct {
	Name string `json:"name"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stateHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decode(w, r, &req) {
		return
	}
	query, err := location.QueryOf(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.location.Replace(query); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, s.session.SyncWithLocation(r.Context()))
}

func (s *Server) clearErrorHandler(w http.ResponseWriter, _ *http.Request) {
	s.session.ClearError()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[string]
	if !decode(w, r, &req) {
		return
	}
	q := strings.TrimSpace(req.Value)
	if q == s.session.Snapshot().Filters.SearchQuery {
		writeJSON(w, http.StatusOK, s.state())
		return
	}
	s.respond(w, s.session.SetSearchQuery(r.Context(), q))
}

func (s *Server) dateRangeHandler(w http.ResponseWriter, r *http.Request) {
	var req dateRangeRequest
	if !decode(w, r, &req) {
		return
	}
	now := time.Now()
	from, err := parseDay(req.From, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := parseDay(req.To, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}
	s.respond(w, s.session.SetDateRange(r.Context(), from, to))
}

func parseDay(v *string, now time.Time) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	return cli.ParseDay(*v, now)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var req valuesRequest
	if !decode(w, r, &req) {
		return
	}
	statuses, err := inbox.ParseStatuses(req.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, s.session.SetStatusFilters(r.Context(), statuses...))
}

func (s *Server) sentimentHandler(w http.ResponseWriter, r *http.Request) {
	var req valuesRequest
	if !decode(w, r, &req) {
		return
	}
	sentiments, err := inbox.ParseSentiments(req.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, s.session.SetSentimentFilters(r.Context(), sentiments...))
}

func (s *Server) handoffHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[*bool]
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.session.SetHasHandoffFilter(r.Context(), req.Value))
}

func (s *Server) removeFilterHandler(w http.ResponseWriter, r *http.Request) {
	key, err := inbox.ParseFilterKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var values []string
	if v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("value"))); v != "" {
		if key == inbox.KeyDateRange && v != "from" && v != "to" {
			writeError(w, http.StatusBadRequest, (&inbox.EnumError{Field: "date bound", Value: v, Allowed: []string{"from", "to"}}).Error())
			return
		}
		values = append(values, v)
	}
	s.respond(w, s.session.RemoveFilter(r.Context(), key, values...))
}

func (s *Server) clearFiltersHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.session.ClearAllFilters(r.Context()))
}

func (s *Server) sortingHandler(w http.ResponseWriter, r *http.Request) {
	var req sortingRequest
	if !decode(w, r, &req) {
		return
	}
	view := s.session.Snapshot()
	field, order := view.SortBy, view.SortOrder
	var err error
	if req.Field != "" {
		if field, err = inbox.ParseSortField(req.Field); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Order != "" {
		if order, err = inbox.ParseSortOrder(req.Order); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	s.respond(w, s.session.SetSorting(r.Context(), field, order))
}

func (s *Server) perPageHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[int]
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.session.SetPerPage(r.Context(), req.Value))
}

func (s *Server) nextPageHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.session.NextPage(r.Context()))
}

func (s *Server) prevPageHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.session.PrevPage(r.Context()))
}

func (s *Server) goToPageHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest[int]
	if !decode(w, r, &req) {
		return
	}
	if req.Value < 1 {
		writeError(w, http.StatusBadRequest, "page must be at least 1")
		return
	}
	s.respond(w, s.session.GoToPage(r.Context(), req.Value))
}

func (s *Server) listSavedHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"savedFilters": s.session.SavedFilters()})
}

func (s *Server) saveFilterHandler(w http.ResponseWriter, r *http.Request) {
	var req saveFilterRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	sf, err := s.session.SaveCurrentFilters(r.Context(), req.Name)
	if err != nil {
		s.logger.Error("failed to save filter", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sf)
}

func (s *Server) applySavedHandler(w http.ResponseWriter, r *http.Request) {
	sf, err := s.session.FindSavedFilter(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respond(w, s.session.ApplySavedFilter(r.Context(), sf.ID))
}

func (s *Server) deleteSavedHandler(w http.ResponseWriter, r *http.Request) {
	sf, err := s.session.FindSavedFilter(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.session.DeleteSavedFilter(r.Context(), sf.ID); err != nil {
		s.logger.Error("failed to delete saved filter", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) state() StateResponse {
	return StateResponse{State: s.session.Snapshot(), Location: s.location.URL()}
}

// respond writes the session state after a fetching mutation. A fetch that
// was superseded by a newer one is not a failure for this request.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil && !errors.Is(err, inbox.ErrStaleResponse) {
		st := s.state()
		writeJSON(w, http.StatusBadGateway, fetchErrorResponse{
			Error:    err.Error(),
			State:    st.State,
			Location: st.Location,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
