package semantic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLatencyStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, nil)
	}

	snap := stats.Snapshot()
	if snap.Calls != 5 {
		t.Fatalf("expected calls=5, got %d", snap.Calls)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%v max=%v", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestLatencyStatsCountsFailuresAndTimeouts(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(time.Millisecond, nil)
	stats.Record(time.Millisecond, errors.New("onnx session failed"))
	stats.Record(2*time.Second, fmt.Errorf("classify: %w", context.DeadlineExceeded))

	snap := stats.Snapshot()
	if snap.Calls != 3 {
		t.Fatalf("expected calls=3, got %d", snap.Calls)
	}
	if snap.Failures != 1 {
		t.Errorf("expected failures=1, got %d", snap.Failures)
	}
	if snap.Timeouts != 1 {
		t.Errorf("expected timeouts=1, got %d", snap.Timeouts)
	}
}

func TestLatencyStatsPrunesExpiredCalls(t *testing.T) {
	stats := NewLatencyStats(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats.now = func() time.Time { return now }
	stats.Record(100*time.Millisecond, nil)

	now = now.Add(2 * time.Minute)
	if snap := stats.Snapshot(); snap.Calls != 0 {
		t.Fatalf("expected calls=0 after prune, got %d", snap.Calls)
	}

	stats.Record(200*time.Millisecond, nil)
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.MinMs != 200 {
		t.Fatalf("expected one fresh call of 200ms, got %+v", snap)
	}
}

func TestLatencyStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(-10*time.Millisecond, nil)
	snap := stats.Snapshot()
	if snap.Calls != 1 {
		t.Fatalf("expected calls=1, got %d", snap.Calls)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%v max=%v", snap.MinMs, snap.MaxMs)
	}
}
