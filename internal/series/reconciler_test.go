package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/chart-back/pkg/models"
)

func TestReconcile_SortsUnorderedInput(t *testing.T) {
	in := []models.PricePoint{
		{Time: 300, Value: 3},
		{Time: 100, Value: 1},
		{Time: 500, Value: 5},
		{Time: 200, Value: 2},
		{Time: 400, Value: 4},
	}

	out := Reconcile(in)
	if len(out) != 5 {
		t.Fatalf("expected 5 points, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Time >= out[i].Time {
			t.Fatalf("series not strictly increasing at %d: %d >= %d", i, out[i-1].Time, out[i].Time)
		}
	}
}

func TestReconcile_IdempotentOnCleanSeries(t *testing.T) {
	in := []models.PricePoint{
		{Time: 10, Value: 1.5},
		{Time: 20, Value: 2.5},
		{Time: 30, Value: 3.5},
	}

	out := Reconcile(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d points, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("point %d changed: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestReconcile_NewestWriteWins(t *testing.T) {
	// Historical bucket first, live tick for the same second appended after.
	out := Reconcile([]models.PricePoint{
		{Time: 100, Value: 1},
		{Time: 100, Value: 2},
	})

	if len(out) != 1 {
		t.Fatalf("expected 1 point, got %d", len(out))
	}
	if out[0].Value != 2 {
		t.Errorf("expected later write to win, got value %v", out[0].Value)
	}
}

func TestAppend_TickOverridesHistoricalBucket(t *testing.T) {
	history := Reconcile([]models.PricePoint{
		{Time: 100, Value: 1},
		{Time: 160, Value: 1.2},
	})

	out := Append(history, models.PricePoint{Time: 100, Value: 2})
	if len(out) != 2 {
		t.Fatalf("expected 2 points, got %d", len(out))
	}
	if out[0].Time != 100 || out[0].Value != 2 {
		t.Errorf("expected tick value at time 100, got %+v", out[0])
	}
}

func TestAppend_CapKeepsMostRecent(t *testing.T) {
	var out []models.PricePoint
	base := int64(1_000_000)
	for i := 0; i < Cap+50; i++ {
		out = Append(out, models.PricePoint{Time: base + int64(i), Value: float64(i)})
		if len(out) > Cap {
			t.Fatalf("series exceeded cap after %d appends: %d", i+1, len(out))
		}
	}

	if len(out) != Cap {
		t.Fatalf("expected exactly %d points, got %d", Cap, len(out))
	}
	if out[0].Time != base+50 {
		t.Errorf("expected oldest retained time %d, got %d", base+50, out[0].Time)
	}
	if out[len(out)-1].Time != base+int64(Cap+49) {
		t.Errorf("expected newest time %d, got %d", base+int64(Cap+49), out[len(out)-1].Time)
	}
}

func TestReconcile_RandomizedSortInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var candidates []models.PricePoint
	for i := 0; i < 1000; i++ {
		candidates = append(candidates, models.PricePoint{
			Time:  int64(rng.Intn(500)),
			Value: rng.Float64() * 100,
		})
	}

	out := Reconcile(candidates)
	for i := 1; i < len(out); i++ {
		if out[i-1].Time >= out[i].Time {
			t.Fatalf("sort invariant violated at %d", i)
		}
	}
}

func localSeconds(hour, min, sec int) int64 {
	return time.Date(2024, 3, 14, hour, min, sec, 0, time.Local).Unix()
}

func TestMarkers_OnePerQuarterHourBucket(t *testing.T) {
	pts := []models.PricePoint{
		{Time: localSeconds(12, 0, 5), Value: 1},
		{Time: localSeconds(12, 0, 45), Value: 2},
		{Time: localSeconds(12, 15, 10), Value: 3},
	}

	markers := Markers(pts, models.Range15m)
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].Time != pts[0].Time {
		t.Errorf("first marker should be at first point of 12:00 bucket, got %d", markers[0].Time)
	}
	if markers[1].Time != pts[2].Time {
		t.Errorf("second marker should be at first point of 12:15 bucket, got %d", markers[1].Time)
	}
	for _, m := range markers {
		if m.Value != 1 {
			t.Errorf("marker value should be 1, got %d", m.Value)
		}
	}
}

func TestMarkers_IgnoresOffBucketMinutes(t *testing.T) {
	pts := []models.PricePoint{
		{Time: localSeconds(9, 7, 0), Value: 1},
		{Time: localSeconds(9, 30, 0), Value: 2},
		{Time: localSeconds(9, 44, 0), Value: 3},
	}

	markers := Markers(pts, models.Range1H)
	if len(markers) != 1 {
		t.Fatalf("expected 1 marker, got %d", len(markers))
	}
	if markers[0].Time != pts[1].Time {
		t.Errorf("marker should be at the 9:30 point, got %d", markers[0].Time)
	}
}

func TestMarkers_SuppressedForCoarseRanges(t *testing.T) {
	pts := []models.PricePoint{
		{Time: localSeconds(12, 0, 0), Value: 1},
		{Time: localSeconds(12, 15, 0), Value: 2},
		{Time: localSeconds(12, 30, 0), Value: 3},
	}

	for _, token := range []models.RangeToken{models.Range1D, models.Range1W, models.Range1M, models.Range1Y} {
		if markers := Markers(pts, token); len(markers) != 0 {
			t.Errorf("range %s should produce no markers, got %d", token, len(markers))
		}
	}
}
