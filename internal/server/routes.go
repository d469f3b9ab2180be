package server

import (
	"net/http"
	"strconv"

	"github.com/zsiec/loopview/pkg/version"
)

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, http.StatusOK, version.GetInfo())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.ctrl.Stats())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Play(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.ctrl.Stats().State})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Pause()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.ctrl.Stats().State})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.ctrl.Stats().State})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("t")
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "t must be seconds as a number")
		return
	}
	s.ctrl.Seek(seconds)
	s.writeJSON(w, http.StatusOK, map[string]float64{"position": s.ctrl.Stats().Position})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("v")
	volume, err := strconv.Atoi(raw)
	if err != nil || volume < 0 || volume > 100 {
		s.writeError(w, http.StatusBadRequest, "v must be an integer 0-100")
		return
	}
	s.ctrl.SetVolume(volume)
	s.writeJSON(w, http.StatusOK, map[string]int{"volume": s.ctrl.Stats().Volume})
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("on")
	on, err := strconv.ParseBool(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "on must be a boolean")
		return
	}
	s.ctrl.SetLoop(on)
	s.writeJSON(w, http.StatusOK, map[string]bool{"loop": s.ctrl.Stats().Loop})
}
