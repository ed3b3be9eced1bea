package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loopvid/keystone/state"
)

func previewTestServer() *Server {
	shared := state.New(&state.CalibrationState{}, &state.ColorState{})
	return &Server{shared: shared, mux: http.NewServeMux()}
}

func TestHandlePreviewConflictWhenInactive(t *testing.T) {
	s := previewTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/preview", nil)
	w := httptest.NewRecorder()

	s.handlePreview(false)(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestHandlePreviewActivateIncrementsRefCount(t *testing.T) {
	s := previewTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/preview/activate", nil)
	w := httptest.NewRecorder()
	s.handlePreviewActivate(w, req)

	var body struct {
		Active   bool `json:"active"`
		RefCount int  `json:"refCount"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Active || body.RefCount != 1 {
		t.Fatalf("after one activate: active=%v refCount=%d, want true/1", body.Active, body.RefCount)
	}

	w2 := httptest.NewRecorder()
	s.handlePreviewActivate(w2, req)
	var body2 struct {
		RefCount int `json:"refCount"`
	}
	json.NewDecoder(w2.Body).Decode(&body2)
	if body2.RefCount != 2 {
		t.Fatalf("after two activates: refCount=%d, want 2", body2.RefCount)
	}
}

func TestHandlePreviewDeactivateClearsJPEGsAtZero(t *testing.T) {
	s := previewTestServer()
	s.shared.UpdatePreview(func(pr *state.PreviewState) {
		pr.RefCount = 1
		pr.Active = true
		pr.RawJPEG = []byte{0xFF, 0xD8}
		pr.CorrJPEG = []byte{0xFF, 0xD8}
	})

	req := httptest.NewRequest(http.MethodPost, "/api/preview/deactivate", nil)
	w := httptest.NewRecorder()
	s.handlePreviewDeactivate(w, req)

	snap := s.shared.Load()
	if snap.Preview.Active {
		t.Fatal("Active still true after last deactivate")
	}
	if snap.Preview.RawJPEG != nil || snap.Preview.CorrJPEG != nil {
		t.Fatal("JPEGs not cleared on full deactivation")
	}
}

func TestHandlePreviewDeactivateFloorsAtZero(t *testing.T) {
	s := previewTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/preview/deactivate", nil)
	w := httptest.NewRecorder()
	s.handlePreviewDeactivate(w, req)

	snap := s.shared.Load()
	if snap.Preview.RefCount != 0 {
		t.Fatalf("RefCount = %d, want floored at 0", snap.Preview.RefCount)
	}
}

func TestHandlePreviewServesActiveJPEG(t *testing.T) {
	s := previewTestServer()
	want := []byte{0xFF, 0xD8, 0xAB, 0xCD}
	s.shared.UpdatePreview(func(pr *state.PreviewState) {
		pr.Active = true
		pr.CorrJPEG = want
	})

	req := httptest.NewRequest(http.MethodGet, "/api/preview", nil)
	w := httptest.NewRecorder()
	s.handlePreview(false)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("Content-Type = %q, want image/jpeg", ct)
	}
	if string(w.Body.Bytes()) != string(want) {
		t.Fatalf("body = %v, want %v", w.Body.Bytes(), want)
	}
}
