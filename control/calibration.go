/*
DESCRIPTION
  calibration.go implements the /api/calibration* routes: reading and
  mutating the calibration polygon, adding/removing edge points,
  resetting to defaults, saving the config file, and the
  enable/disable gate. Save copies only the calibration's enabled flag
  into the config before writing it; corner and edge point positions are
  not persisted.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package control

import (
	"net/http"
	"strconv"

	"github.com/loopvid/keystone/pipeline/config"
	"github.com/loopvid/keystone/state"
)

type calibrationPointDTO struct {
	ID   int     `json:"id"`
	Kind string  `json:"kind"`
	Edge int     `json:"edge,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func pointToDTO(p state.CalibrationPoint) calibrationPointDTO {
	kind := "corner"
	if p.Kind == state.Edge {
		kind = "edge"
	}
	return calibrationPointDTO{ID: p.ID, Kind: kind, Edge: p.Edge, X: p.X, Y: p.Y}
}

type calibrationDTO struct {
	Enabled bool                  `json:"enabled"`
	Corners []calibrationPointDTO `json:"corners"`
	Edges   []calibrationPointDTO `json:"edges"`
}

func calibrationToDTO(c *state.CalibrationState) calibrationDTO {
	dto := calibrationDTO{Enabled: c.Enabled}
	for _, p := range c.Corners {
		dto.Corners = append(dto.Corners, pointToDTO(p))
	}
	for _, p := range c.Edges {
		dto.Edges = append(dto.Edges, pointToDTO(p))
	}
	return dto
}

func (s *Server) handleCalibrationGet(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.Load()
	writeJSON(w, http.StatusOK, calibrationToDTO(snap.Calibration))
}

func (s *Server) handleCalibrationPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Corners []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"corners"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Corners) != 4 {
		writeError(w, http.StatusBadRequest, "exactly 4 corners required")
		return
	}
	for _, c := range req.Corners {
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 {
			writeError(w, http.StatusBadRequest, "corner coordinates must be in [0, 1]")
			return
		}
	}

	snap := s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
		for i, c := range req.Corners {
			cal.Corners[i].X = c.X
			cal.Corners[i].Y = c.Y
		}
	})
	writeJSON(w, http.StatusOK, calibrationToDTO(snap.Calibration))
}

func (s *Server) handlePointAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Edge int     `json:"edge"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Edge < state.EdgeTop || req.Edge > state.EdgeLeft {
		writeError(w, http.StatusBadRequest, "edge must be 0-3")
		return
	}

	var added state.CalibrationPoint
	snap := s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
		added = state.CalibrationPoint{
			ID: cal.NextEdgeID(), Kind: state.Edge, Edge: req.Edge,
			X: clampUnit(req.X), Y: clampUnit(req.Y),
		}
		cal.Edges = append(cal.Edges, added)
	})
	_ = snap
	writeJSON(w, http.StatusCreated, pointToDTO(added))
}

func (s *Server) handlePointUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	x, y := clampUnit(req.X), clampUnit(req.Y)
	found := false
	snap := s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
		for i := range cal.Corners {
			if cal.Corners[i].ID == id {
				cal.Corners[i].X, cal.Corners[i].Y = x, y
				found = true
				return
			}
		}
		for i := range cal.Edges {
			if cal.Edges[i].ID == id {
				cal.Edges[i].X, cal.Edges[i].Y = x, y
				found = true
				return
			}
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "no such point")
		return
	}
	p, _ := snap.Calibration.Point(id)
	writeJSON(w, http.StatusOK, pointToDTO(p))
}

func (s *Server) handlePointDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}
	if id < 100 {
		writeError(w, http.StatusBadRequest, "corner points cannot be deleted")
		return
	}

	found := false
	s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
		for i, p := range cal.Edges {
			if p.ID == id {
				cal.Edges = append(cal.Edges[:i], cal.Edges[i+1:]...)
				found = true
				return
			}
		}
	})
	if !found {
		writeError(w, http.StatusNotFound, "no such point")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalibrationReset(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
		cal.Corners = state.DefaultCorners
		cal.Edges = nil
	})
	writeJSON(w, http.StatusOK, calibrationToDTO(snap.Calibration))
}

func (s *Server) handleCalibrationSave(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	snap := s.shared.Load()
	s.cfg.CalibrationEnabled = snap.Calibration.Enabled
	if err := config.Save(s.cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// clampUnit clamps a coordinate into [0, 1], the range every point's x, y
// must stay within for all states reachable via the API.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Server) handleCalibrationEnable(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.shared.UpdateCalibration(func(cal *state.CalibrationState) {
			cal.Enabled = enabled
		})
		writeJSON(w, http.StatusOK, calibrationToDTO(snap.Calibration))
	}
}
