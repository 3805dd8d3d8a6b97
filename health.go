package mtapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string     `json:"status"`
	LastUpdate *time.Time `json:"last_update"`
	Generation uint64     `json:"generation"`
	Stations   int        `json:"stations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "starting",
		Generation: s.engine.Generation(),
		Stations:   s.engine.Index().Len(),
	}
	if t, ok := s.engine.LastUpdate(); ok {
		resp.Status = "ok"
		resp.LastUpdate = &t
	}
	s.writeJSON(w, http.StatusOK, resp)
}
