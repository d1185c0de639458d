package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sqlbench/cli/internal/backend"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type executeRequest struct {
	Query              string  `json:"query"`
	Database           *string `json:"database"`
	ConfirmDestructive bool    `json:"confirm_destructive"`
}

type confirmationResponse struct {
	Success              bool     `json:"success"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
	Query                string   `json:"query"`
	Operation            string   `json:"operation"`
	AffectedObjects      []string `json:"affected_objects"`
	Warning              string   `json:"warning,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) connectionTest(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.TestConnection(r.Context())
	if err != nil {
		s.fail(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Query cannot be empty"})
		return
	}
	database := ""
	if req.Database != nil {
		database = *req.Database
	}

	resp, err := s.service.ExecuteQuery(r.Context(), req.Query, database, req.ConfirmDestructive)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if c := resp.Confirmation; c != nil {
		writeJSON(w, http.StatusOK, confirmationResponse{
			RequiresConfirmation: true,
			Query:                c.Query,
			Operation:            c.Operation,
			AffectedObjects:      nonNil(c.AffectedObjects),
			Warning:              c.Warning,
		})
		return
	}
	if resp.Result == nil {
		writeJSON(w, http.StatusOK, model.Failure("Query execution failed"))
		return
	}
	writeJSON(w, http.StatusOK, resp.Result)
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")
	if database == backend.DefaultSchemaName {
		database = ""
	}
	sc, err := s.service.GetSchema(r.Context(), database)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if sc.Tables == nil {
		sc.Tables = []model.Table{}
	}
	writeJSON(w, http.StatusOK, sc)
}

// fail reports err as {"detail": ...}, passing through upstream service errors.
// Both forms are masked.
func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	var se *backend.ServiceError
	if errors.As(err, &se) && se.Status >= 400 {
		status = se.Status
		msg = se.Message
	}
	msg = logging.Mask(msg)
	s.logger.Warn("request failed", s.logger.Args("status", status, "error", msg))
	writeJSON(w, status, errorResponse{Detail: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
