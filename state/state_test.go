package state

import "testing"

func newTestState() *SharedState {
	cal := &CalibrationState{Corners: UnitCorners, Width: 640, Height: 480}
	color := DefaultColor()
	return New(cal, &color)
}

func TestLoadReturnsConsistentSnapshot(t *testing.T) {
	s := newTestState()
	snap := s.Load()
	if snap.Calibration == nil || snap.Color == nil {
		t.Fatal("initial snapshot missing fields")
	}
	if snap.Version != 0 {
		t.Fatalf("initial version = %d, want 0", snap.Version)
	}
}

func TestUpdateCalibrationInstallsNewSnapshotWithoutMutatingOld(t *testing.T) {
	s := newTestState()
	old := s.Load()

	s.UpdateCalibration(func(c *CalibrationState) {
		c.Corners[0].X = 0.25
	})

	if old.Calibration.Corners[0].X != 0 {
		t.Fatalf("old snapshot was mutated: got %v, want 0", old.Calibration.Corners[0].X)
	}
	next := s.Load()
	if next.Calibration.Corners[0].X != 0.25 {
		t.Fatalf("new snapshot missing update: got %v, want 0.25", next.Calibration.Corners[0].X)
	}
	if next.Version == old.Version {
		t.Fatal("version did not advance")
	}
}

func TestUpdateColorClampsOutOfRangeValues(t *testing.T) {
	s := newTestState()
	s.UpdateColor(func(c *ColorState) {
		c.RedGain = 10
		c.Brightness = -500
	})
	snap := s.Load()
	if snap.Color.RedGain != 2.0 {
		t.Fatalf("RedGain = %v, want clamped to 2.0", snap.Color.RedGain)
	}
	if snap.Color.Brightness != -100 {
		t.Fatalf("Brightness = %v, want clamped to -100", snap.Color.Brightness)
	}
}

func TestAddEdgePointNextID(t *testing.T) {
	cal := &CalibrationState{Corners: UnitCorners}
	if got := cal.NextEdgeID(); got != 100 {
		t.Fatalf("NextEdgeID on empty = %d, want 100", got)
	}
	cal.Edges = append(cal.Edges, CalibrationPoint{ID: 100, Kind: Edge, Edge: EdgeTop})
	if got := cal.NextEdgeID(); got != 101 {
		t.Fatalf("NextEdgeID after one edge = %d, want 101", got)
	}
}

func TestPreviewRefCounting(t *testing.T) {
	s := newTestState()
	s.UpdatePreview(func(p *PreviewState) {
		p.RefCount++
		p.Active = p.RefCount > 0
	})
	if !s.Load().Preview.Active {
		t.Fatal("preview should be active after first ref")
	}
	s.UpdatePreview(func(p *PreviewState) {
		p.RefCount--
		p.Active = p.RefCount > 0
	})
	if s.Load().Preview.Active {
		t.Fatal("preview should be inactive after last ref released")
	}
}
