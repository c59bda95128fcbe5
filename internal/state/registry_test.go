package state

import (
	"sync"
	"testing"

	"griffin/internal/models"
)

func newTestRegistry() *Registry {
	now := 1000.0
	return NewRegistry(DefaultParams(), func() float64 { return now })
}

func TestRouteCreatesOnce(t *testing.T) {
	r := newTestRegistry()

	first := r.Route("EURUSD", "BrokerA")
	second := r.Route("EURUSD", "BrokerA")

	if first != second {
		t.Error("Route must return a stable pointer for the same (symbol, broker)")
	}
	if first.BrokerName() != "BrokerA" || first.Symbol() != "EURUSD" {
		t.Errorf("state identity = (%s, %s), want (BrokerA, EURUSD)",
			first.BrokerName(), first.Symbol())
	}
}

func TestRouteConcurrent(t *testing.T) {
	r := newTestRegistry()

	var wg sync.WaitGroup
	results := make([]*BrokerState, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = r.Route("GBPUSD", "BrokerB")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent Route calls returned different states for the same pair")
		}
	}
}

func TestLookupDoesNotCreate(t *testing.T) {
	r := newTestRegistry()

	if _, ok := r.Lookup("EURUSD", "Ghost"); ok {
		t.Error("Lookup must not report unknown pairs")
	}

	r.Route("EURUSD", "BrokerA")
	if _, ok := r.Lookup("EURUSD", "BrokerA"); !ok {
		t.Error("Lookup must find an existing pair")
	}

	// Lookup не должен был создать запись для Ghost
	enum := r.EnumerateBySymbol()
	if len(enum["EURUSD"]) != 1 {
		t.Errorf("broker count = %d, want 1", len(enum["EURUSD"]))
	}
}

func TestEnumerateBySymbolSortedByBrokerName(t *testing.T) {
	r := newTestRegistry()
	r.Route("EURUSD", "Zulu")
	r.Route("EURUSD", "Alpha")
	r.Route("EURUSD", "Mike")
	r.Route("USDJPY", "Alpha")

	enum := r.EnumerateBySymbol()
	if len(enum) != 2 {
		t.Fatalf("symbol count = %d, want 2", len(enum))
	}

	names := make([]string, 0, 3)
	for _, b := range enum["EURUSD"] {
		names = append(names, b.BrokerName())
	}
	want := []string{"Alpha", "Mike", "Zulu"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("enumeration order = %v, want %v", names, want)
			break
		}
	}
}

func TestSnapshotPublication(t *testing.T) {
	r := newTestRegistry()

	// До первой публикации снапшот пуст, но не nil
	if snap := r.Snapshot(); snap == nil || len(snap) != 0 {
		t.Errorf("initial snapshot = %v, want empty", snap)
	}

	published := models.AnalysisSnapshot{
		"EURUSD": {
			"BrokerA": &models.KPIReport{BrokerName: "BrokerA", QualityScore: 87.5},
		},
	}
	r.PublishSnapshot(published)

	got := r.Snapshot()
	report, ok := got["EURUSD"]["BrokerA"]
	if !ok {
		t.Fatal("published snapshot lost the broker report")
	}
	if report.QualityScore != 87.5 {
		t.Errorf("quality score = %v, want 87.5", report.QualityScore)
	}
}
