package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loopvid/keystone/pipeline"
	"github.com/loopvid/keystone/pipeline/config"
)

func testServer(cfg *config.Config, applied pipeline.AppliedDevice) *Server {
	return &Server{
		cfg:     cfg,
		applied: func() pipeline.AppliedDevice { return applied },
		mux:     http.NewServeMux(),
	}
}

func TestFormatNameKnownAndUnknown(t *testing.T) {
	if got := formatName(3); got != "rgb24" {
		t.Fatalf("formatName(rgb24) = %q", got)
	}
	if got := formatName(99); got != "unknown" {
		t.Fatalf("formatName(99) = %q, want unknown", got)
	}
}

func TestHandleVideoDevicesReturnsJSONArray(t *testing.T) {
	s := testServer(config.Default(), pipeline.AppliedDevice{})
	req := httptest.NewRequest(http.MethodGet, "/api/video/devices", nil)
	w := httptest.NewRecorder()

	s.handleVideoDevices(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Devices []string `json:"devices"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleVideoDeviceGetReportsPending(t *testing.T) {
	cfg := config.Default()
	cfg.Pending.InputPath = "/dev/video5"
	cfg.Pending.Dirty = true
	s := testServer(cfg, pipeline.AppliedDevice{})

	req := httptest.NewRequest(http.MethodGet, "/api/video/device", nil)
	w := httptest.NewRecorder()
	s.handleVideoDeviceGet(w, req)

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["pendingInput"] != "/dev/video5" {
		t.Fatalf("pendingInput = %v, want /dev/video5", body["pendingInput"])
	}
	if body["pendingDirty"] != true {
		t.Fatalf("pendingDirty = %v, want true", body["pendingDirty"])
	}
}

func TestHandleVideoDevicePostStagesChange(t *testing.T) {
	cfg := config.Default()
	s := testServer(cfg, pipeline.AppliedDevice{})

	body := `{"inputPath":"/dev/video7","outputPath":""}`
	req := httptest.NewRequest(http.MethodPost, "/api/video/device", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleVideoDevicePost(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if cfg.Pending.InputPath != "/dev/video7" {
		t.Fatalf("Pending.InputPath = %q, want /dev/video7", cfg.Pending.InputPath)
	}
	if !cfg.Pending.Dirty {
		t.Fatal("Pending.Dirty = false, want true")
	}
	if cfg.Pending.OutputPath != "" {
		t.Fatalf("Pending.OutputPath = %q, want unchanged empty", cfg.Pending.OutputPath)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["restart_required"] != true {
		t.Fatalf("restart_required = %v, want true", body["restart_required"])
	}
}

func TestHandleVideoSettingsGetReportsAppliedAndPending(t *testing.T) {
	cfg := config.Default()
	cfg.Pending.Width = 1920
	applied := pipeline.AppliedDevice{Width: 1280, Height: 720, FPS: 25}
	s := testServer(cfg, applied)

	req := httptest.NewRequest(http.MethodGet, "/api/video/settings", nil)
	w := httptest.NewRecorder()
	s.handleVideoSettingsGet(w, req)

	var body struct {
		Width   uint32                 `json:"width"`
		Height  uint32                 `json:"height"`
		FPS     uint32                 `json:"fps"`
		Pending map[string]interface{} `json:"pending"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Width != 1280 || body.Height != 720 || body.FPS != 25 {
		t.Fatalf("applied settings = %+v, want 1280x720@25", body)
	}
	if body.Pending["width"].(float64) != 1920 {
		t.Fatalf("pending width = %v, want 1920", body.Pending["width"])
	}
}

func TestHandleVideoSettingsPostIgnoresZeroFields(t *testing.T) {
	cfg := config.Default()
	s := testServer(cfg, pipeline.AppliedDevice{})

	req := httptest.NewRequest(http.MethodPost, "/api/video/settings", strings.NewReader(`{"width":640,"height":0,"fps":0}`))
	w := httptest.NewRecorder()
	s.handleVideoSettingsPost(w, req)

	if cfg.Pending.Width != 640 {
		t.Fatalf("Pending.Width = %d, want 640", cfg.Pending.Width)
	}
	if cfg.Pending.Height != 0 {
		t.Fatalf("Pending.Height = %d, want untouched 0", cfg.Pending.Height)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["restart_required"] != true {
		t.Fatalf("restart_required = %v, want true", body["restart_required"])
	}
}

func TestHandleVideoFormatPostReportsRestartRequired(t *testing.T) {
	cfg := config.Default()
	s := testServer(cfg, pipeline.AppliedDevice{})

	req := httptest.NewRequest(http.MethodPost, "/api/video/format", strings.NewReader(`{"format":"yuyv"}`))
	w := httptest.NewRecorder()
	s.handleVideoFormatPost(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["restart_required"] != true {
		t.Fatalf("restart_required = %v, want true", body["restart_required"])
	}
	if body["format"] != "yuyv" {
		t.Fatalf("format = %v, want yuyv", body["format"])
	}
}

func TestHandleVideoFormatPostRejectsUnknownFormat(t *testing.T) {
	s := testServer(config.Default(), pipeline.AppliedDevice{})

	req := httptest.NewRequest(http.MethodPost, "/api/video/format", strings.NewReader(`{"format":"raw16"}`))
	w := httptest.NewRecorder()
	s.handleVideoFormatPost(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleVideoCapabilitiesReportsApplied(t *testing.T) {
	applied := pipeline.AppliedDevice{Width: 800, Height: 600, FPS: 15, InputFormat: 2}
	s := testServer(config.Default(), applied)

	req := httptest.NewRequest(http.MethodGet, "/api/video/capabilities", nil)
	w := httptest.NewRecorder()
	s.handleVideoCapabilities(w, req)

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["appliedFormat"] != "yuyv" {
		t.Fatalf("appliedFormat = %v, want yuyv", body["appliedFormat"])
	}
}

func TestPendingDTOReflectsAllFields(t *testing.T) {
	p := config.PendingDevice{InputPath: "/dev/video1", OutputPath: "/dev/video11", Width: 100, Height: 200, FPS: 30, Dirty: true}
	dto := pendingDTO(p)
	if dto["inputPath"] != "/dev/video1" || dto["dirty"] != true || dto["fps"] != 30 {
		t.Fatalf("pendingDTO() = %+v, unexpected", dto)
	}
}
