/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, a
  function for updating the variable in the Config struct from a string,
  and a validation function that checks/defaults the corresponding field.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"strconv"
)

// Config map keys, used in the persisted file format.
const (
	KeyInputPath        = "InputPath"
	KeyOutputPath       = "OutputPath"
	KeyWidth            = "Width"
	KeyHeight           = "Height"
	KeyFPS              = "FPS"
	KeyHost             = "Host"
	KeyPort             = "Port"
	KeyLogLevel         = "LogLevel"
	KeyLogPath          = "LogPath"
	KeyVerbose          = "Verbose"
	KeyPoolSize         = "PoolSize"
	KeyCaptureTimeoutMS = "CaptureTimeoutMS"

	KeyCalibrationEnabled = "CalibrationEnabled"

	KeyColorEnabled = "ColorEnabled"
	KeyColorSpace   = "ColorSpace"
	KeyColorRange   = "ColorRange"
	KeyRedGain      = "RedGain"
	KeyGreenGain    = "GreenGain"
	KeyBlueGain     = "BlueGain"
	KeyBrightness   = "Brightness"
	KeyContrast     = "Contrast"
	KeySaturation   = "Saturation"
	KeyHue          = "Hue"
	KeyGamma        = "Gamma"
)

// Variables drives both Config.Update (map-of-strings writes from the
// persisted file loader) and defaulting: every entry's
// Update parses one key's string value into the Config field(s) it owns,
// and an optional Validate clamps or defaults that field after any batch
// of updates is applied.
var Variables = []struct {
	Name     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name: KeyInputPath,
		Update: func(c *Config, v string) {
			if v != "" {
				c.InputPath = v
			}
		},
	},
	{
		Name: KeyOutputPath,
		Update: func(c *Config, v string) {
			if v != "" {
				c.OutputPath = v
			}
		},
	},
	{
		Name: KeyWidth,
		Update: func(c *Config, v string) { c.Width = parseIntDefault(v, c.Width) },
		Validate: func(c *Config) {
			if c.Width <= 0 {
				c.Width = 1280
			}
		},
	},
	{
		Name: KeyHeight,
		Update: func(c *Config, v string) { c.Height = parseIntDefault(v, c.Height) },
		Validate: func(c *Config) {
			if c.Height <= 0 {
				c.Height = 720
			}
		},
	},
	{
		Name: KeyFPS,
		Update: func(c *Config, v string) { c.FPS = parseIntDefault(v, c.FPS) },
		Validate: func(c *Config) {
			if c.FPS <= 0 {
				c.FPS = 30
			}
		},
	},
	{
		Name: KeyHost,
		Update: func(c *Config, v string) {
			if v != "" {
				c.Host = v
			}
		},
	},
	{
		Name:     KeyPort,
		Update:   func(c *Config, v string) { c.Port = parseIntDefault(v, c.Port) },
		Validate: func(c *Config) {
			if c.Port <= 0 || c.Port > 65535 {
				c.Port = 8080
			}
		},
	},
	{
		Name:   KeyLogLevel,
		Update: func(c *Config, v string) { c.LogLevel = int8(parseIntDefault(v, int(c.LogLevel))) },
	},
	{
		Name: KeyLogPath,
		Update: func(c *Config, v string) {
			if v != "" {
				c.LogPath = v
			}
		},
	},
	{
		Name:   KeyVerbose,
		Update: func(c *Config, v string) { c.Verbose = parseBool(v, c.Verbose) },
	},
	{
		Name:     KeyPoolSize,
		Update:   func(c *Config, v string) { c.PoolSize = parseIntDefault(v, c.PoolSize) },
		Validate: func(c *Config) {
			if c.PoolSize <= 0 {
				c.PoolSize = 4
			}
		},
	},
	{
		Name:   KeyCaptureTimeoutMS,
		Update: func(c *Config, v string) { c.CaptureTimeoutMS = parseIntDefault(v, c.CaptureTimeoutMS) },
		Validate: func(c *Config) {
			if c.CaptureTimeoutMS < 0 {
				c.CaptureTimeoutMS = 0
			}
		},
	},
	{
		Name:   KeyCalibrationEnabled,
		Update: func(c *Config, v string) { c.CalibrationEnabled = parseBool(v, c.CalibrationEnabled) },
	},
	{
		Name:   KeyColorEnabled,
		Update: func(c *Config, v string) { c.ColorEnabled = parseBool(v, c.ColorEnabled) },
	},
	{
		Name: KeyColorSpace,
		Update: func(c *Config, v string) {
			switch v {
			case "bt601", "bt709", "bt2020":
				c.ColorSpace = v
			}
		},
	},
	{
		Name: KeyColorRange,
		Update: func(c *Config, v string) {
			switch v {
			case "limited", "full":
				c.ColorRange = v
			}
		},
	},
	{
		Name:     KeyRedGain,
		Update:   func(c *Config, v string) { c.RedGain = parseFloatDefault(v, c.RedGain) },
		Validate: func(c *Config) { c.RedGain = clampF(c.RedGain, 0.5, 2.0) },
	},
	{
		Name:     KeyGreenGain,
		Update:   func(c *Config, v string) { c.GreenGain = parseFloatDefault(v, c.GreenGain) },
		Validate: func(c *Config) { c.GreenGain = clampF(c.GreenGain, 0.5, 2.0) },
	},
	{
		Name:     KeyBlueGain,
		Update:   func(c *Config, v string) { c.BlueGain = parseFloatDefault(v, c.BlueGain) },
		Validate: func(c *Config) { c.BlueGain = clampF(c.BlueGain, 0.5, 2.0) },
	},
	{
		Name:     KeyBrightness,
		Update:   func(c *Config, v string) { c.Brightness = parseFloatDefault(v, c.Brightness) },
		Validate: func(c *Config) { c.Brightness = clampF(c.Brightness, -100, 100) },
	},
	{
		Name:     KeyContrast,
		Update:   func(c *Config, v string) { c.Contrast = parseFloatDefault(v, c.Contrast) },
		Validate: func(c *Config) { c.Contrast = clampF(c.Contrast, 0, 2) },
	},
	{
		Name:     KeySaturation,
		Update:   func(c *Config, v string) { c.Saturation = parseFloatDefault(v, c.Saturation) },
		Validate: func(c *Config) { c.Saturation = clampF(c.Saturation, 0, 2) },
	},
	{
		Name:     KeyHue,
		Update:   func(c *Config, v string) { c.Hue = parseFloatDefault(v, c.Hue) },
		Validate: func(c *Config) { c.Hue = clampF(c.Hue, -180, 180) },
	},
	{
		Name:     KeyGamma,
		Update:   func(c *Config, v string) { c.Gamma = parseFloatDefault(v, c.Gamma) },
		Validate: func(c *Config) { c.Gamma = clampF(c.Gamma, 0.1, 3.0) },
	},
}

func parseIntDefault(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseFloatDefault(v string, def float64) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
