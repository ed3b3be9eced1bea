/*
DESCRIPTION
  preview.go implements the /api/preview* routes: a ref-counted
  activation gate (the pipeline only pays for JPEG encoding while at
  least one client wants a preview) and the raw/corrected JPEG reads.

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

	"github.com/loopvid/keystone/state"
)

// handlePreview returns a handler serving the most recently encoded JPEG,
// either the raw (pre-color, pre-warp) frame or the fully corrected one.
func (s *Server) handlePreview(raw bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.shared.Load()
		jpegBytes := snap.Preview.CorrJPEG
		if raw {
			jpegBytes = snap.Preview.RawJPEG
		}
		if !snap.Preview.Active || jpegBytes == nil {
			writeError(w, http.StatusConflict, "preview is not active or no frame has been encoded yet")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(jpegBytes)
	}
}

func (s *Server) handlePreviewActivate(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.UpdatePreview(func(pr *state.PreviewState) {
		pr.RefCount++
		pr.Active = pr.RefCount > 0
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"active": snap.Preview.Active, "refCount": snap.Preview.RefCount})
}

func (s *Server) handlePreviewDeactivate(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.UpdatePreview(func(pr *state.PreviewState) {
		if pr.RefCount > 0 {
			pr.RefCount--
		}
		pr.Active = pr.RefCount > 0
		if !pr.Active {
			pr.RawJPEG, pr.CorrJPEG = nil, nil
		}
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"active": snap.Preview.Active, "refCount": snap.Preview.RefCount})
}
