package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chart-back/pkg/models"
)

func newTestManager() (*Manager, *fakeFeed) {
	ff := &fakeFeed{}
	m := NewManager(&fakeHistory{}, ff.open, nil, nil, quietLogger())
	return m, ff
}

func TestManager_AddNormalizesSymbol(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	snap, err := m.Add("  btc/usdt ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Symbol != "BTC/USDT" {
		t.Errorf("symbol not normalized, got %q", snap.Symbol)
	}
	if snap.Range != models.Range1D {
		t.Errorf("empty range should default to 1D, got %s", snap.Range)
	}
	if snap.ID != 1 {
		t.Errorf("first widget should get id 1, got %d", snap.ID)
	}
}

func TestManager_RejectsEmptySymbol(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	if _, err := m.Add("   ", models.Range1D); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("expected ErrEmptySymbol, got %v", err)
	}
}

func TestManager_EnforcesWidgetLimit(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	for i := 0; i < MaxWidgets; i++ {
		if _, err := m.Add(fmt.Sprintf("SYM%d", i), models.Range1D); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	if _, err := m.Add("ONEMORE", models.Range1D); !errors.Is(err, ErrWidgetLimit) {
		t.Errorf("expected ErrWidgetLimit, got %v", err)
	}

	// Removing frees a slot.
	if err := m.Remove(1); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := m.Add("ONEMORE", models.Range1D); err != nil {
		t.Errorf("add after remove failed: %v", err)
	}
}

func TestManager_RemoveUnknownWidget(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	if err := m.Remove(42); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("expected ErrWidgetNotFound, got %v", err)
	}
}

func TestManager_SnapshotsOrderedByID(t *testing.T) {
	m, _ := newTestManager()
	defer m.Close()

	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		if _, err := m.Add(sym, models.Range1D); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	snaps := m.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i-1].ID >= snaps[i].ID {
			t.Errorf("snapshots not ordered by id: %d >= %d", snaps[i-1].ID, snaps[i].ID)
		}
	}
}

func TestManager_RemoveStopsPipeline(t *testing.T) {
	m, ff := newTestManager()
	defer m.Close()

	if _, err := m.Add("AAPL", models.Range1D); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	waitFor(t, func() bool { return ff.count() == 1 }, "feed never opened")

	if err := m.Remove(1); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	waitFor(t, func() bool { return ff.at(0).conn.closed.Load() > 0 }, "feed not closed on remove")

	if m.Count() != 0 {
		t.Errorf("expected 0 widgets, got %d", m.Count())
	}
}

func TestManager_SetSymbolAndRange(t *testing.T) {
	m, ff := newTestManager()
	defer m.Close()

	if _, err := m.Add("AAPL", models.Range1D); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	waitFor(t, func() bool { return ff.count() == 1 }, "feed never opened")

	if err := m.SetSymbol(1, "msft"); err != nil {
		t.Fatalf("set symbol failed: %v", err)
	}
	waitFor(t, func() bool {
		p, _ := m.Get(1)
		return p.Snapshot().Symbol == "MSFT"
	}, "symbol retarget never applied")

	if err := m.SetRange(1, models.Range1H); err != nil {
		t.Fatalf("set range failed: %v", err)
	}
	waitFor(t, func() bool {
		p, _ := m.Get(1)
		return p.Snapshot().Range == models.Range1H
	}, "range retarget never applied")

	if err := m.SetRange(99, models.Range1H); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("expected ErrWidgetNotFound, got %v", err)
	}
}
