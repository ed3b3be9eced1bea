/*
DESCRIPTION
  stats.go implements the /api/stats routes: reading and resetting the
  pipeline's rolling throughput and error counters.

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
	"time"
)

type statsDTO struct {
	FramesCaptured uint64 `json:"framesCaptured"`
	FramesDecoded  uint64 `json:"framesDecoded"`
	FramesColored  uint64 `json:"framesColored"`
	FramesWarped   uint64 `json:"framesWarped"`
	FramesOutput   uint64 `json:"framesOutput"`
	FramesDropped  uint64 `json:"framesDropped"`
	CaptureErrors  uint64 `json:"captureErrors"`
	DecodeErrors   uint64 `json:"decodeErrors"`
	OutputErrors   uint64 `json:"outputErrors"`
	LastFrameTime  string `json:"lastFrameTime,omitempty"`
	AvgStageNanos  [5]int64 `json:"avgStageNanos"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
}

func (s *Server) handleStatsGet(w http.ResponseWriter, r *http.Request) {
	st := s.pl.Stats()
	dto := statsDTO{
		FramesCaptured: st.FramesCaptured,
		FramesDecoded:  st.FramesDecoded,
		FramesColored:  st.FramesColored,
		FramesWarped:   st.FramesWarped,
		FramesOutput:   st.FramesOutput,
		FramesDropped:  st.FramesDropped,
		CaptureErrors:  st.CaptureErrors,
		DecodeErrors:   st.DecodeErrors,
		OutputErrors:   st.OutputErrors,
		AvgStageNanos:  st.AvgStageNanos,
		UptimeSeconds:  time.Since(st.StartTime).Seconds(),
	}
	if !st.LastFrameTime.IsZero() {
		dto.LastFrameTime = st.LastFrameTime.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleStatsReset(w http.ResponseWriter, r *http.Request) {
	s.pl.ResetStats()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
