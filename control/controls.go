/*
DESCRIPTION
  controls.go implements the /api/camera/control* routes: enumerating
  the capture device's driver-exposed controls, setting one, and
  resetting/refreshing the set.

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
)

type controlDTO struct {
	ID       uint32 `json:"id"`
	Name     string `json:"name"`
	Value    int32  `json:"value"`
	Min      int32  `json:"min"`
	Max      int32  `json:"max"`
	Step     int32  `json:"step"`
	Default  int32  `json:"default"`
	Disabled bool   `json:"disabled"`
	Inactive bool   `json:"inactive"`
}

func (s *Server) handleControlsGet(w http.ResponseWriter, r *http.Request) {
	controls, err := s.pl.Source().Controls()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]controlDTO, 0, len(controls))
	for _, c := range controls {
		dtos = append(dtos, controlDTO{
			ID: c.ID, Name: c.Name, Value: c.Value,
			Min: c.Min, Max: c.Max, Step: c.Step, Default: c.Def,
			Disabled: c.Disabled, Inactive: c.Inactive,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"controls": dtos})
}

func (s *Server) handleControlSet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid control id")
		return
	}
	var req struct {
		Value int32 `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.pl.Source().SetControl(uint32(id), req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (s *Server) handleControlsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.pl.Source().ResetControls(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleControlsRefresh re-reads every control's current value from the
// driver, picking up changes made outside this service (e.g. by another
// process sharing the device between streams).
func (s *Server) handleControlsRefresh(w http.ResponseWriter, r *http.Request) {
	s.handleControlsGet(w, r)
}
