/*
DESCRIPTION
  config.go defines Config, the flat set of fields needed to construct
  every pipeline component, and Update, the map-of-strings entry point the
  persisted file loader drives through the Variables table in
  variables.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config defines and persists the startup configuration for the
// keystone video transform service.
package config

import (
	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/state"
)

// Config holds every field needed to construct the capture, output,
// color, warp, control and logging components at startup. Fields that
// affect capture/output format require a device restart to take effect;
// see Pending below.
type Config struct {
	Logger logging.Logger `json:"-"`

	// Device paths.
	InputPath  string
	OutputPath string

	// Requested capture/output format. The device may negotiate different
	// actual values; see pipeline.AppliedDevice.
	Width  int
	Height int
	FPS    int

	// HTTP control plane bind address.
	Host string
	Port int

	// ConfigPath is where persisted settings are loaded from / saved to.
	ConfigPath string

	// Logging.
	LogLevel int8
	LogPath  string
	Verbose  bool

	// Pool sizing: idle buffers kept per class.
	PoolSize int

	// CaptureTimeoutMS bounds how long a single capture read waits for a
	// frame before the pipeline counts it as dropped and moves on; zero
	// disables the deadline.
	CaptureTimeoutMS int

	// Calibration defaults, applied at startup to build the initial
	// state.CalibrationState.
	CalibrationEnabled bool

	// Color defaults, applied at startup to build the initial
	// state.ColorState.
	ColorEnabled    bool
	ColorSpace      string // "bt601", "bt709", "bt2020"
	ColorRange      string // "limited", "full"
	RedGain         float64
	GreenGain       float64
	BlueGain        float64
	Brightness      float64
	Contrast        float64
	Saturation      float64
	Hue             float64
	Gamma           float64

	// Pending holds restart-required fields written via the HTTP API but
	// not yet applied to a running device, mirroring the "pending restart"
	// behaviour documented for /api/video/settings.
	Pending PendingDevice
}

// PendingDevice holds device-format fields awaiting a restart.
type PendingDevice struct {
	InputPath  string
	OutputPath string
	Width      int
	Height     int
	FPS        int
	Dirty      bool
}

// Default returns a Config populated with this service's defaults,
// equivalent to running with no flags and no persisted file.
func Default() *Config {
	return &Config{
		InputPath:  "/dev/video0",
		OutputPath: "/dev/video10",
		Width:      1280,
		Height:     720,
		FPS:        30,
		Host:       "0.0.0.0",
		Port:       8080,
		ConfigPath: "/etc/keystone/keystone.conf",
		LogLevel:   logging.Info,
		LogPath:    "/var/log/keystone/keystone.log",
		PoolSize:   4,
		// 2s covers a stalled USB capture device without stalling the
		// pipeline's other stages for long.
		CaptureTimeoutMS: 2000,
		ColorSpace: "bt709",
		ColorRange: "limited",
		RedGain:    1,
		GreenGain:  1,
		BlueGain:   1,
		Contrast:   1,
		Saturation: 1,
		Gamma:      1,
	}
}

// ColorSpaceValue parses c.ColorSpace into a state.ColorSpace, defaulting
// to BT709 on an unrecognized value.
func (c *Config) ColorSpaceValue() state.ColorSpace {
	switch c.ColorSpace {
	case "bt601":
		return state.BT601
	case "bt2020":
		return state.BT2020
	default:
		return state.BT709
	}
}

// ColorRangeValue parses c.ColorRange into a state.InputRange, defaulting
// to Limited on an unrecognized value.
func (c *Config) ColorRangeValue() state.InputRange {
	if c.ColorRange == "full" {
		return state.Full
	}
	return state.Limited
}

// InitialCalibration builds the starting state.CalibrationState from c.
func (c *Config) InitialCalibration() *state.CalibrationState {
	return &state.CalibrationState{
		Corners: state.UnitCorners,
		Enabled: c.CalibrationEnabled,
		Width:   c.Width,
		Height:  c.Height,
	}
}

// InitialColor builds the starting state.ColorState from c.
func (c *Config) InitialColor() *state.ColorState {
	return &state.ColorState{
		Enabled:    c.ColorEnabled,
		Space:      c.ColorSpaceValue(),
		Range:      c.ColorRangeValue(),
		RedGain:    c.RedGain,
		GreenGain:  c.GreenGain,
		BlueGain:   c.BlueGain,
		Brightness: c.Brightness,
		Contrast:   c.Contrast,
		Saturation: c.Saturation,
		Hue:        c.Hue,
		Gamma:      c.Gamma,
	}
}

// Update applies a map of key/string-value pairs using the Variables
// table, silently skipping any key it does not recognize. Used by the
// persisted-file loader; the HTTP handlers set Config fields directly.
func (c *Config) Update(values map[string]string) {
	for _, kv := range Variables {
		if v, ok := values[kv.Name]; ok {
			kv.Update(c, v)
		}
	}
	c.applyDefaults()
}

// applyDefaults runs every Variable's Validate step, mirroring the
// teacher's defaulting pass after a config load.
func (c *Config) applyDefaults() {
	for _, kv := range Variables {
		if kv.Validate != nil {
			kv.Validate(c)
		}
	}
}
