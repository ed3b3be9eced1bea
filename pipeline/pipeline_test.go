package pipeline

import (
	"testing"
	"time"
)

func TestBumpIncrementsCounter(t *testing.T) {
	p := &Pipeline{}
	p.bump(&p.stats.FramesCaptured)
	p.bump(&p.stats.FramesCaptured)
	if p.stats.FramesCaptured != 2 {
		t.Fatalf("FramesCaptured = %d, want 2", p.stats.FramesCaptured)
	}
}

func TestResetStatsKeepsStartTime(t *testing.T) {
	p := &Pipeline{}
	p.stats.FramesCaptured = 10
	start := p.stats.StartTime
	p.ResetStats()
	if p.stats.FramesCaptured != 0 {
		t.Fatal("ResetStats should zero counters")
	}
	if p.stats.StartTime != start {
		t.Fatal("ResetStats should preserve StartTime")
	}
}

func TestTimeStageTracksMovingAverage(t *testing.T) {
	p := &Pipeline{}
	p.stats.AvgStageNanos[0] = 1000
	p.timeStage(0, time.Now().Add(-500*time.Microsecond))
	if p.stats.AvgStageNanos[0] == 1000 {
		t.Fatal("expected moving average to shift toward the new sample")
	}
}
