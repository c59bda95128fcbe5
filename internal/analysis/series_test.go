package analysis

import (
	"math"
	"testing"

	"griffin/internal/models"
)

func ticksAt(pairs ...float64) []models.Tick {
	// pairs: timestamp, bid, timestamp, bid, ...
	out := make([]models.Tick, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Tick{Timestamp: pairs[i], Bid: pairs[i+1]})
	}
	return out
}

func TestAlignBidSeriesUnionOfTimestamps(t *testing.T) {
	a := ticksAt(1, 1.10, 3, 1.12)
	b := ticksAt(2, 2.20, 3, 2.23)

	x, y := alignBidSeries(a, b)

	if len(x) != 3 || len(y) != 3 {
		t.Fatalf("expected 3 aligned points, got %d/%d", len(x), len(y))
	}

	// ts=1: a=1.10, b - backfill первым значением 2.20
	// ts=2: a - ffill 1.10, b=2.20
	// ts=3: оба тикают
	wantX := []float64{1.10, 1.10, 1.12}
	wantY := []float64{2.20, 2.20, 2.23}
	for i := range wantX {
		if x[i] != wantX[i] {
			t.Errorf("x[%d] = %v, want %v", i, x[i], wantX[i])
		}
		if y[i] != wantY[i] {
			t.Errorf("y[%d] = %v, want %v", i, y[i], wantY[i])
		}
	}
}

func TestAlignBidSeriesDuplicateTimestampsCollapse(t *testing.T) {
	a := ticksAt(1, 1.10, 1, 1.11, 2, 1.12)
	b := ticksAt(1, 2.20, 2, 2.21)

	x, y := alignBidSeries(a, b)

	if len(x) != 2 {
		t.Fatalf("expected 2 aligned points, got %d", len(x))
	}
	// Дубликаты метки времени схлопываются в последнее значение
	if x[0] != 1.11 {
		t.Errorf("x[0] = %v, want last value 1.11", x[0])
	}
	if y[0] != 2.20 {
		t.Errorf("y[0] = %v, want 2.20", y[0])
	}
}

func TestAlignBidSeriesEmptySides(t *testing.T) {
	x, y := alignBidSeries(nil, nil)
	if len(x) != 0 || len(y) != 0 {
		t.Fatalf("empty inputs must give empty columns, got %d/%d", len(x), len(y))
	}

	x, y = alignBidSeries(ticksAt(1, 1.10), nil)
	if len(x) != 1 || x[0] != 1.10 {
		t.Fatalf("unexpected x column: %v", x)
	}
	// У пустого ряда нечем заполнить: NaN остаётся
	if !math.IsNaN(y[0]) {
		t.Fatalf("expected NaN for side without values, got %v", y[0])
	}
}

func TestPointwiseEqual(t *testing.T) {
	if !pointwiseEqual([]float64{1, 2, 3}, []float64{1, 2, 3}) {
		t.Error("identical columns must compare equal")
	}
	if pointwiseEqual([]float64{1, 2, 3}, []float64{1, 2, 4}) {
		t.Error("different columns must not compare equal")
	}
	if pointwiseEqual([]float64{1, 2}, []float64{1, 2, 3}) {
		t.Error("different lengths must not compare equal")
	}
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	y := []float64{2, 4, 6, 8, 10}
	if got := pearson(x, y); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("perfect linear correlation = %v, want 1.0", got)
	}

	down := []float64{10, 8, 6, 4, 2}
	if got := pearson(x, down); math.Abs(got+1.0) > 1e-9 {
		t.Errorf("perfect inverse correlation = %v, want -1.0", got)
	}

	constant := []float64{7, 7, 7, 7, 7}
	if got := pearson(x, constant); got != 0.0 {
		t.Errorf("degenerate correlation = %v, want coerced 0.0", got)
	}
}
