package mtapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultLocationLimit = 5

type routesResponse struct {
	Data    []string   `json:"data"`
	Updated *time.Time `json:"updated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Debug {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if s.cfg.CrossOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.cfg.CrossOrigin)
		}
		next(w, r)
	}
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	resp := routesResponse{Data: s.engine.GetRoutes()}
	if t, ok := s.engine.LastUpdate(); ok {
		resp.Updated = &t
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleByRoute(w http.ResponseWriter, r *http.Request) {
	env, err := s.engine.GetByRoute(r.PathValue("route"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.PathValue("ids"), ",")
	env, err := s.engine.GetByID(ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleByLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, &QueryError{Msg: "Missing lat/lon parameter"})
		return
	}
	if !finite(lat) || !finite(lon) {
		s.writeError(w, &QueryError{Msg: "lat/lon must be finite numbers"})
		return
	}
	limit := defaultLocationLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, &QueryError{Msg: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.engine.GetByPoint(lat, lon, limit))
}

// writeJSON encodes before writing the header so an encoding failure is a 500
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.log.Warn("Failed to write response", "error", err)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var qe *QueryError
	switch {
	case errors.As(err, &qe):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: qe.Msg})
	case errors.Is(err, ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error("Request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
