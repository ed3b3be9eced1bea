/*
DESCRIPTION
  colorh.go implements the /api/color* routes: reading and mutating the
  color-correction parameters, named presets, and one-shot auto white
  balance.

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

	"github.com/loopvid/keystone/color"
	"github.com/loopvid/keystone/state"
)

type colorDTO struct {
	Enabled    bool    `json:"enabled"`
	Space      string  `json:"space"`
	Range      string  `json:"range"`
	RedGain    float64 `json:"redGain"`
	GreenGain  float64 `json:"greenGain"`
	BlueGain   float64 `json:"blueGain"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
	Gamma      float64 `json:"gamma"`
}

func colorToDTO(c *state.ColorState) colorDTO {
	return colorDTO{
		Enabled: c.Enabled, Space: c.Space.String(), Range: c.Range.String(),
		RedGain: c.RedGain, GreenGain: c.GreenGain, BlueGain: c.BlueGain,
		Brightness: c.Brightness, Contrast: c.Contrast, Saturation: c.Saturation,
		Hue: c.Hue, Gamma: c.Gamma,
	}
}

func (s *Server) handleColorGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, colorToDTO(s.shared.Load().Color))
}

func (s *Server) handleColorPost(w http.ResponseWriter, r *http.Request) {
	var req colorDTO
	cur := s.shared.Load().Color
	req = colorToDTO(cur)
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap := s.shared.UpdateColor(func(c *state.ColorState) {
		c.Enabled = req.Enabled
		c.RedGain, c.GreenGain, c.BlueGain = req.RedGain, req.GreenGain, req.BlueGain
		c.Brightness, c.Contrast = req.Brightness, req.Contrast
		c.Saturation, c.Hue, c.Gamma = req.Saturation, req.Hue, req.Gamma
		switch req.Space {
		case "bt601":
			c.Space = state.BT601
		case "bt2020":
			c.Space = state.BT2020
		default:
			c.Space = state.BT709
		}
		if req.Range == "full" {
			c.Range = state.Full
		} else {
			c.Range = state.Limited
		}
	})
	writeJSON(w, http.StatusOK, colorToDTO(snap.Color))
}

// presets are the named colorspace/range conventions a client can apply
// in one call. Unlike an aesthetic "look", a preset IS a Space/Range
// choice, so applying one replaces both; Enabled is left untouched so
// applying a preset doesn't silently turn color correction on or off.
var presets = map[string]state.ColorState{
	"Passthrough":                {Space: state.BT709, Range: state.Limited, RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1},
	"HD Standard BT.709 Limited": {Space: state.BT709, Range: state.Limited, RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1},
	"HDR BT.2020 Limited":        {Space: state.BT2020, Range: state.Limited, RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1},
	"PC Full Range":              {Space: state.BT709, Range: state.Full, RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1},
	"SD Legacy BT.601":           {Space: state.BT601, Range: state.Limited, RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1},
}

func (s *Server) handleColorPresets(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": names})
}

func (s *Server) handleColorPresetApply(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	preset, ok := presets[name]
	if !ok {
		writeError(w, http.StatusNotFound, "no such preset")
		return
	}
	snap := s.shared.UpdateColor(func(c *state.ColorState) {
		enabled := c.Enabled
		*c = preset
		c.Enabled = enabled
	})
	writeJSON(w, http.StatusOK, colorToDTO(snap.Color))
}

// handleAutoWhiteBalance samples the pipeline's most recently processed
// working frame, computes gray-world gains from it, and applies them to
// the live color state. A *color.LowSignal rejection leaves the color
// state unchanged and is reported as 422, not a server error.
func (s *Server) handleAutoWhiteBalance(w http.ResponseWriter, r *http.Request) {
	sample, ok := s.pl.LastRGB()
	if !ok {
		writeError(w, http.StatusConflict, "no frame has been processed yet; retry once the pipeline is running")
		return
	}

	red, green, blue, err := color.AutoWhiteBalanceGains(sample.Data)
	if err != nil {
		if ls, ok := err.(*color.LowSignal); ok {
			writeError(w, http.StatusUnprocessableEntity, ls.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap := s.shared.UpdateColor(func(c *state.ColorState) {
		c.RedGain, c.GreenGain, c.BlueGain = red, green, blue
	})
	writeJSON(w, http.StatusOK, colorToDTO(snap.Color))
}
