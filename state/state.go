/*
DESCRIPTION
  state.go implements SharedState, the copy-on-write container the
  pipeline driver reads from and the HTTP control plane writes to. Each
  write installs a brand new Snapshot; readers always see a consistent,
  fully-formed Snapshot, never a partially-updated one.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package state

import (
	"sync/atomic"
	"time"
)

// Stats is a rolling snapshot of pipeline throughput and error counters,
// reset to zero on demand via Stats/reset.
type Stats struct {
	FramesCaptured  uint64
	FramesDecoded   uint64
	FramesColored   uint64
	FramesWarped    uint64
	FramesOutput    uint64
	FramesDropped   uint64
	CaptureErrors   uint64
	DecodeErrors    uint64
	OutputErrors    uint64
	LastFrameTime   time.Time
	AvgStageNanos   [5]int64 // capture, decode, color, warp, output.
	StartTime       time.Time
}

// Snapshot is the immutable bundle every in-flight frame is processed
// against. A Snapshot is never mutated after Install; a write builds a new
// one from a Clone of the previous.
type Snapshot struct {
	Version     uint64
	Calibration *CalibrationState
	Color       *ColorState
	Controls    *ControlState
	Preview     *PreviewState
}

// SharedState is the copy-on-write holder of the current Snapshot.
type SharedState struct {
	ptr atomic.Pointer[Snapshot]
	// version is a monotonically increasing counter, independent of ptr's
	// contents, used only to tag installed snapshots for diagnostics.
	version atomic.Uint64
}

// New returns a SharedState initialized with the given starting values.
func New(cal *CalibrationState, color *ColorState) *SharedState {
	s := &SharedState{}
	snap := &Snapshot{
		Version:     0,
		Calibration: cal,
		Color:       color,
		Controls:    &ControlState{Values: make(map[ControlID]ControlValue)},
		Preview:     &PreviewState{},
	}
	s.ptr.Store(snap)
	return s
}

// Load returns the currently installed Snapshot. Safe to call
// concurrently with Install from any number of goroutines; the returned
// Snapshot is never mutated, only replaced.
func (s *SharedState) Load() *Snapshot {
	return s.ptr.Load()
}

// install builds a new Snapshot from fn applied to a Clone of the current
// one and atomically installs it, returning the new Snapshot.
func (s *SharedState) install(fn func(*Snapshot)) *Snapshot {
	cur := s.ptr.Load()
	next := &Snapshot{
		Version:     s.version.Add(1),
		Calibration: cur.Calibration.Clone(),
		Color:       cloneColor(cur.Color),
		Controls:    cur.Controls.Clone(),
		Preview:     cur.Preview.Clone(),
	}
	fn(next)
	s.ptr.Store(next)
	return next
}

func cloneColor(c *ColorState) *ColorState {
	n := *c
	return &n
}

// UpdateCalibration installs a new CalibrationState built by fn from a
// mutable clone of the current one.
func (s *SharedState) UpdateCalibration(fn func(*CalibrationState)) *Snapshot {
	return s.install(func(snap *Snapshot) { fn(snap.Calibration) })
}

// UpdateColor installs a new ColorState built by fn from a mutable clone
// of the current one, clamping every field to its declared range
// afterwards.
func (s *SharedState) UpdateColor(fn func(*ColorState)) *Snapshot {
	return s.install(func(snap *Snapshot) {
		fn(snap.Color)
		snap.Color.Clamp()
	})
}

// UpdateControls installs a new ControlState built by fn.
func (s *SharedState) UpdateControls(fn func(*ControlState)) *Snapshot {
	return s.install(func(snap *Snapshot) { fn(snap.Controls) })
}

// UpdatePreview installs a new PreviewState built by fn.
func (s *SharedState) UpdatePreview(fn func(*PreviewState)) *Snapshot {
	return s.install(func(snap *Snapshot) { fn(snap.Preview) })
}
