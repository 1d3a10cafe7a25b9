package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zakazai/ulin-grid/internal/types"
)

type nameRequest struct {
	Name string `json:"name"`
}

type columnRequest struct {
	Name string           `json:"name"`
	Type types.ColumnType `json:"type"`
}

type fakeRequest struct {
	Count int `json:"count"`
}

type fakeResponse struct {
	Inserted int `json:"inserted"`
}

type cellRequest struct {
	RowIndex int    `json:"rowIndex"`
	ColumnID string `json:"columnId"`
	Value    string `json:"value"`
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.Validationf("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.ListWorkspaces(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ws, err := s.store.CreateWorkspace(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) createDefaultTable(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.store.CreateDefaultTable(r.Context(), chi.URLParam(r, "workspaceID"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTableByID(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getRows(w http.ResponseWriter, r *http.Request) {
	limit := types.DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, types.Validationf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	page, err := s.store.GetRows(r.Context(), chi.URLParam(r, "tableID"), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) queryRows(w http.ResponseWriter, r *http.Request) {
	var req types.PageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.TableID = chi.URLParam(r, "tableID")
	page, err := s.store.GetRowsWithOperations(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) addColumn(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tableID := chi.URLParam(r, "tableID")
	col, err := s.store.AddColumn(r.Context(), tableID, req.Name, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	s.hub.Publish(tableID)
	writeJSON(w, http.StatusCreated, col)
}

func (s *Server) addRow(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	row, err := s.store.AddRow(r.Context(), tableID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.hub.Publish(tableID)
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) addFakeRows(w http.ResponseWriter, r *http.Request) {
	var req fakeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tableID := chi.URLParam(r, "tableID")
	n, err := s.store.AddFakeRows(r.Context(), tableID, req.Count)
	if n > 0 {
		s.hub.Publish(tableID)
	}
	if err != nil {
		writeErrorBody(w, err, errorResponse{Inserted: n})
		return
	}
	writeJSON(w, http.StatusCreated, fakeResponse{Inserted: n})
}

func (s *Server) updateCell(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tableID := chi.URLParam(r, "tableID")
	if err := s.store.UpdateCell(r.Context(), tableID, req.RowIndex, req.ColumnID, req.Value); err != nil {
		writeError(w, err)
		return
	}
	s.hub.Publish(tableID)
	w.WriteHeader(http.StatusNoContent)
}

// events upgrades to a websocket that receives the table's invalidations.
// The caller must be able to read the table.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	if _, err := s.store.GetTableByID(r.Context(), tableID); err != nil {
		writeError(w, err)
		return
	}
	s.hub.ServeTable(w, r, tableID)
}
