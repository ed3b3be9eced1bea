/*
DESCRIPTION
  persist.go loads and saves Config to a small INI-style file, using a
  write-temp-then-rename sequence so a crash mid-write never leaves a
  truncated config file behind.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// sections groups Variables keys under the file's [section] headers purely
// for readability; the parser itself is section-agnostic; it accepts any
// known key under any header.
var sections = map[string]string{
	KeyInputPath: "video", KeyOutputPath: "video", KeyWidth: "video",
	KeyHeight: "video", KeyFPS: "video",
	KeyHost: "server", KeyPort: "server",
	KeyLogLevel: "server", KeyLogPath: "server", KeyVerbose: "server",
	KeyPoolSize: "server", KeyCaptureTimeoutMS: "video",
	KeyCalibrationEnabled: "calibration",
	KeyColorEnabled:       "color", KeyColorSpace: "color", KeyColorRange: "color",
	KeyRedGain: "color", KeyGreenGain: "color", KeyBlueGain: "color",
	KeyBrightness: "color", KeyContrast: "color", KeySaturation: "color",
	KeyHue: "color", KeyGamma: "color",
}

// Load reads path and applies its key/value pairs onto a Default Config.
// A missing file is not an error: Load falls back to Default() with
// Variables' Validate defaulting applied, matching the teacher's
// no-file-means-defaults behaviour.
func Load(path string) (*Config, error) {
	c := Default()
	c.ConfigPath = path

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		c.applyDefaults()
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		i := strings.Index(line, "=")
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		values[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	c.Update(values)
	return c, nil
}

// Save writes c to its ConfigPath by writing a temp file in the same
// directory and renaming it over the target, so readers never observe a
// partially-written file.
func Save(c *Config) error {
	dir := filepath.Dir(c.ConfigPath)
	tmp, err := os.CreateTemp(dir, ".keystone-conf-*")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op once the rename below succeeds.

	w := bufio.NewWriter(tmp)
	bySection := map[string][][2]string{}
	for _, kv := range Variables {
		sec := sections[kv.Name]
		bySection[sec] = append(bySection[sec], [2]string{kv.Name, fieldString(c, kv.Name)})
	}
	for _, sec := range []string{"video", "server", "calibration", "color"} {
		fmt.Fprintf(w, "[%s]\n", sec)
		for _, kv := range bySection[sec] {
			fmt.Fprintf(w, "%s = %s\n", kv[0], kv[1])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.ConfigPath); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// fieldString renders the named field's current value as it would appear
// in the file / in Config.Update's input map.
func fieldString(c *Config, name string) string {
	switch name {
	case KeyInputPath:
		return c.InputPath
	case KeyOutputPath:
		return c.OutputPath
	case KeyWidth:
		return strconv.Itoa(c.Width)
	case KeyHeight:
		return strconv.Itoa(c.Height)
	case KeyFPS:
		return strconv.Itoa(c.FPS)
	case KeyHost:
		return c.Host
	case KeyPort:
		return strconv.Itoa(c.Port)
	case KeyLogLevel:
		return strconv.Itoa(int(c.LogLevel))
	case KeyLogPath:
		return c.LogPath
	case KeyVerbose:
		return strconv.FormatBool(c.Verbose)
	case KeyPoolSize:
		return strconv.Itoa(c.PoolSize)
	case KeyCaptureTimeoutMS:
		return strconv.Itoa(c.CaptureTimeoutMS)
	case KeyCalibrationEnabled:
		return strconv.FormatBool(c.CalibrationEnabled)
	case KeyColorEnabled:
		return strconv.FormatBool(c.ColorEnabled)
	case KeyColorSpace:
		return c.ColorSpace
	case KeyColorRange:
		return c.ColorRange
	case KeyRedGain:
		return strconv.FormatFloat(c.RedGain, 'g', -1, 64)
	case KeyGreenGain:
		return strconv.FormatFloat(c.GreenGain, 'g', -1, 64)
	case KeyBlueGain:
		return strconv.FormatFloat(c.BlueGain, 'g', -1, 64)
	case KeyBrightness:
		return strconv.FormatFloat(c.Brightness, 'g', -1, 64)
	case KeyContrast:
		return strconv.FormatFloat(c.Contrast, 'g', -1, 64)
	case KeySaturation:
		return strconv.FormatFloat(c.Saturation, 'g', -1, 64)
	case KeyHue:
		return strconv.FormatFloat(c.Hue, 'g', -1, 64)
	case KeyGamma:
		return strconv.FormatFloat(c.Gamma, 'g', -1, 64)
	default:
		return ""
	}
}
