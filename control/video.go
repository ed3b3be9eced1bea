/*
DESCRIPTION
  video.go implements the /api/video* routes: listing candidate V4L2
  devices, reading/requesting the input and output device paths, the
  capture width/height/fps, and the pixel format, plus a read-only
  capabilities report. Device changes only take effect on restart;
  they're staged in Config.Pending until then. A format change request
  only marks Config.Pending dirty; the requested format itself is not
  stored.

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
	"path/filepath"
	"sort"

	"github.com/loopvid/keystone/pipeline/config"
	"github.com/loopvid/keystone/pool"
)

func formatName(f pool.PixFmt) string {
	switch f {
	case pool.FmtMJPEG:
		return "mjpeg"
	case pool.FmtYUYV:
		return "yuyv"
	case pool.FmtRGB24:
		return "rgb24"
	default:
		return "unknown"
	}
}

// handleVideoDevices lists /dev/video* nodes present on the host, as
// candidates for the input or output device path.
func (s *Server) handleVideoDevices(w http.ResponseWriter, r *http.Request) {
	matches, _ := filepath.Glob("/dev/video*")
	sort.Strings(matches)
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": matches})
}

func (s *Server) handleVideoDeviceGet(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inputPath":     s.cfg.InputPath,
		"outputPath":    s.cfg.OutputPath,
		"pendingDirty":  s.cfg.Pending.Dirty,
		"pendingInput":  s.cfg.Pending.InputPath,
		"pendingOutput": s.cfg.Pending.OutputPath,
	})
}

func (s *Server) handleVideoDevicePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputPath  string `json:"inputPath"`
		OutputPath string `json:"outputPath"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if req.InputPath != "" {
		s.cfg.Pending.InputPath = req.InputPath
	}
	if req.OutputPath != "" {
		s.cfg.Pending.OutputPath = req.OutputPath
	}
	s.cfg.Pending.Dirty = true
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "pending restart", "restart_required": true})
}

func (s *Server) handleVideoSettingsGet(w http.ResponseWriter, r *http.Request) {
	applied := s.applied()
	s.cfgMu.Lock()
	pending := s.cfg.Pending
	s.cfgMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"width":   applied.Width,
		"height":  applied.Height,
		"fps":     applied.FPS,
		"pending": pendingDTO(pending),
	})
}

func (s *Server) handleVideoSettingsPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		FPS    int `json:"fps"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if req.Width > 0 {
		s.cfg.Pending.Width = req.Width
	}
	if req.Height > 0 {
		s.cfg.Pending.Height = req.Height
	}
	if req.FPS > 0 {
		s.cfg.Pending.FPS = req.FPS
	}
	s.cfg.Pending.Dirty = true
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "pending restart", "restart_required": true})
}

func (s *Server) handleVideoFormatGet(w http.ResponseWriter, r *http.Request) {
	applied := s.applied()
	writeJSON(w, http.StatusOK, map[string]string{"format": formatName(applied.InputFormat)})
}

func (s *Server) handleVideoFormatPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Format != "mjpeg" && req.Format != "yuyv" {
		writeError(w, http.StatusBadRequest, "format must be mjpeg or yuyv")
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Pending.Dirty = true
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "pending restart", "restart_required": true, "format": req.Format})
}

func (s *Server) handleVideoCapabilities(w http.ResponseWriter, r *http.Request) {
	applied := s.applied()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appliedWidth":  applied.Width,
		"appliedHeight": applied.Height,
		"appliedFPS":    applied.FPS,
		"appliedFormat": formatName(applied.InputFormat),
	})
}

func pendingDTO(p config.PendingDevice) map[string]interface{} {
	return map[string]interface{}{
		"dirty":      p.Dirty,
		"inputPath":  p.InputPath,
		"outputPath": p.OutputPath,
		"width":      p.Width,
		"height":     p.Height,
		"fps":        p.FPS,
	}
}
