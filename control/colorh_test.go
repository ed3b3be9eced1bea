package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/pipeline"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
)

func colorTestServer() *Server {
	shared := state.New(&state.CalibrationState{}, &state.ColorState{RedGain: 1, GreenGain: 1, BlueGain: 1, Contrast: 1, Saturation: 1, Gamma: 1})
	log := logging.New(logging.Error, nil, true)
	p := pool.New(2, log)
	pl := pipeline.New(nil, nil, p, shared, log)
	return &Server{shared: shared, pl: pl, mux: http.NewServeMux()}
}

func TestHandleColorGetReturnsCurrentState(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/color", nil)
	w := httptest.NewRecorder()
	s.handleColorGet(w, req)

	var dto colorDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.RedGain != 1 {
		t.Fatalf("RedGain = %v, want 1", dto.RedGain)
	}
}

func TestHandleColorPostAppliesPartialUpdate(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/color", strings.NewReader(`{"redGain":1.5,"space":"bt601","range":"full"}`))
	w := httptest.NewRecorder()
	s.handleColorPost(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	snap := s.shared.Load()
	if snap.Color.RedGain != 1.5 {
		t.Fatalf("RedGain = %v, want 1.5", snap.Color.RedGain)
	}
	if snap.Color.Space != state.BT601 {
		t.Fatalf("Space = %v, want BT601", snap.Color.Space)
	}
	if snap.Color.Range != state.Full {
		t.Fatalf("Range = %v, want Full", snap.Color.Range)
	}
}

func TestHandleColorPostDefaultsUnknownSpaceToBT709(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/color", strings.NewReader(`{"space":"madeup"}`))
	w := httptest.NewRecorder()
	s.handleColorPost(w, req)

	if s.shared.Load().Color.Space != state.BT709 {
		t.Fatalf("Space = %v, want BT709 fallback", s.shared.Load().Color.Space)
	}
}

func TestHandleColorPresetsListsAllNames(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/color/presets", nil)
	w := httptest.NewRecorder()
	s.handleColorPresets(w, req)

	var body struct {
		Presets []string `json:"presets"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Presets) != len(presets) {
		t.Fatalf("got %d presets, want %d", len(body.Presets), len(presets))
	}
}

func TestHandleColorPresetApplyUnknownName(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/color/preset/nosuch", nil)
	req.SetPathValue("name", "nosuch")
	w := httptest.NewRecorder()
	s.handleColorPresetApply(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleColorPresetApplyPreservesEnabledButSetsColorimetry(t *testing.T) {
	s := colorTestServer()
	s.shared.UpdateColor(func(c *state.ColorState) {
		c.Enabled = true
		c.Space = state.BT709
		c.Range = state.Limited
	})

	req := httptest.NewRequest(http.MethodPost, "/api/color/preset/HDR%20BT.2020%20Limited", nil)
	req.SetPathValue("name", "HDR BT.2020 Limited")
	w := httptest.NewRecorder()
	s.handleColorPresetApply(w, req)

	snap := s.shared.Load()
	if !snap.Color.Enabled {
		t.Fatal("Enabled was reset by preset apply")
	}
	// Presets ARE colorspace/range conventions, so applying one must set
	// Space/Range to the preset's values, not preserve the caller's prior
	// ones.
	if snap.Color.Space != state.BT2020 || snap.Color.Range != state.Limited {
		t.Fatalf("colorimetry = (%v, %v), want (BT2020, Limited)", snap.Color.Space, snap.Color.Range)
	}
	if snap.Color.RedGain != presets["HDR BT.2020 Limited"].RedGain {
		t.Fatalf("RedGain = %v, want preset's %v", snap.Color.RedGain, presets["HDR BT.2020 Limited"].RedGain)
	}
}

func TestHandleAutoWhiteBalanceConflictBeforeAnyFrame(t *testing.T) {
	s := colorTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/color/auto-white-balance", nil)
	w := httptest.NewRecorder()
	s.handleAutoWhiteBalance(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}
