package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/pipeline"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

func statsTestServer() *Server {
	log := logging.New(logging.Error, nil, true)
	shared := state.New(&state.CalibrationState{}, &state.ColorState{})
	p := pool.New(2, log)
	// src and snk are nil: Stats/ResetStats never touch them, only the
	// pipeline's own counters, so a capture device isn't needed here.
	pl := pipeline.New(nil, nil, p, shared, log)
	return &Server{pl: pl, mux: http.NewServeMux()}
}

func TestHandleStatsGetReportsCounters(t *testing.T) {
	s := statsTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	s.handleStatsGet(w, req)

	var body statsDTO
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.FramesCaptured != 0 {
		t.Fatalf("FramesCaptured = %d, want 0 on a fresh pipeline", body.FramesCaptured)
	}
	if body.LastFrameTime != "" {
		t.Fatalf("LastFrameTime = %q, want empty before any frame", body.LastFrameTime)
	}
}

func TestHandleStatsResetZeroesCounters(t *testing.T) {
	s := statsTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/stats/reset", nil)
	w := httptest.NewRecorder()
	s.handleStatsReset(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got := s.pl.Stats()
	if got.FramesCaptured != 0 || got.FramesDropped != 0 {
		t.Fatalf("stats not reset: %+v", got)
	}
}
