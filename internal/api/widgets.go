package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chart-back/internal/pipeline"
	"github.com/chart-back/pkg/models"
)

type addWidgetRequest struct {
	Symbol string            `json:"symbol"`
	Range  models.RangeToken `json:"range,omitempty"`
}

type setRangeRequest struct {
	Range models.RangeToken `json:"range"`
}

type setSymbolRequest struct {
	Symbol string `json:"symbol"`
}

// handleListWidgets returns snapshots of every widget
func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	snaps := s.widgets.Snapshots()
	writeJSON(w, http.StatusOK, models.WidgetsResponse{
		Widgets: snaps,
		Count:   len(snaps),
	})
}

// handleAddWidget creates a new chart widget
func (s *Server) handleAddWidget(w http.ResponseWriter, r *http.Request) {
	var req addWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.widgets.Add(req.Symbol, req.Range)
	switch {
	case errors.Is(err, pipeline.ErrEmptySymbol):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, pipeline.ErrWidgetLimit):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.WithError(err).Error("Failed to add widget")
		writeError(w, http.StatusInternalServerError, "failed to add widget")
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// handleGetWidget returns one widget snapshot
func (s *Server) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.widgetFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// handleDeleteWidget tears a widget down
func (s *Server) handleDeleteWidget(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := s.widgets.Remove(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetRange retargets a widget's range token
func (s *Server) handleSetRange(w http.ResponseWriter, r *http.Request) {
	var req setRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Range == "" {
		writeError(w, http.StatusBadRequest, "range is required")
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := s.widgets.SetRange(id, req.Range); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleSetSymbol retargets a widget's symbol
func (s *Server) handleSetSymbol(w http.ResponseWriter, r *http.Request) {
	var req setSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := s.widgets.SetSymbol(id, req.Symbol); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// widgetFromRequest resolves the {id} path variable to a pipeline.
func (s *Server) widgetFromRequest(w http.ResponseWriter, r *http.Request) (*pipeline.Pipeline, bool) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	p, ok := s.widgets.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, pipeline.ErrWidgetNotFound.Error())
		return nil, false
	}
	return p, true
}
