package warp

import (
	"testing"

	"github.com/loopvid/keystone/state"
)

func TestRebuildSingleQuadMeshMatchesCorners(t *testing.T) {
	cal := &state.CalibrationState{Corners: state.DefaultCorners, Enabled: true}
	s := New()
	s.rebuild(cal, 1000, 500)

	if s.rows != 1 || s.cols != 1 {
		t.Fatalf("expected a 1x1 mesh with no edge points, got %dx%d", s.rows, s.cols)
	}
	want := toPixel(cal.Corners[0], 1000, 500)
	got := s.mesh[0][0]
	if !almostEqual(got.X, want.X, 1e-6) || !almostEqual(got.Y, want.Y, 1e-6) {
		t.Fatalf("mesh[0][0] = %v, want %v", got, want)
	}
}

func TestRebuildWithEdgePointsAddsColumn(t *testing.T) {
	cal := &state.CalibrationState{
		Corners: state.DefaultCorners,
		Enabled: true,
		Edges: []state.CalibrationPoint{
			{ID: 100, Kind: state.Edge, Edge: state.EdgeTop, X: 0.5, Y: 0.1},
			{ID: 101, Kind: state.Edge, Edge: state.EdgeBottom, X: 0.5, Y: 0.9},
		},
	}
	s := New()
	s.rebuild(cal, 1000, 500)

	if s.cols != 2 {
		t.Fatalf("expected one edge point per top/bottom to yield 2 columns, got %d", s.cols)
	}
	if s.rows != 1 {
		t.Fatalf("no left/right edges should leave rows at 1, got %d", s.rows)
	}
}

func TestRebuildIsStableAcrossRepeatedCalls(t *testing.T) {
	cal := &state.CalibrationState{Corners: state.DefaultCorners, Enabled: true}
	s := New()
	s.rebuild(cal, 640, 480)
	first := s.mesh[0][0]
	s.rebuild(cal, 640, 480)
	second := s.mesh[0][0]

	if first != second {
		t.Fatalf("rebuild with identical inputs produced different mesh: %v vs %v", first, second)
	}
}
