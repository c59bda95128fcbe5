package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"griffin/internal/service"
	"griffin/internal/state"
)

type recordingBroadcaster struct {
	brokers []string
	symbols []string
	spreads []float64
}

func (b *recordingBroadcaster) BroadcastSpreadUpdate(broker, symbol string, spread float64) {
	b.brokers = append(b.brokers, broker)
	b.symbols = append(b.symbols, symbol)
	b.spreads = append(b.spreads, spread)
}

func newTestHandler() (*FeedHandler, *state.Registry, *recordingBroadcaster) {
	now := 100.0
	clock := func() float64 { return now }
	registry := state.NewRegistry(state.DefaultParams(), clock)
	feed := service.NewFeed(registry, clock, zap.NewNop())
	broadcaster := &recordingBroadcaster{}
	return NewFeedHandler(feed, broadcaster, zap.NewNop()), registry, broadcaster
}

func postCSV(t *testing.T, handler http.HandlerFunc, path, body string) map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return payload
}

func TestHandleTick(t *testing.T) {
	h, registry, broadcaster := newTestHandler()

	payload := postCSV(t, h.HandleTick, "/tick", "BrokerA,EURUSD,0,1.10000,1.10012")

	if payload["status"] != "success" {
		t.Fatalf("status = %v, want success", payload["status"])
	}
	if payload["symbol"] != "EURUSD" || payload["broker"] != "BrokerA" {
		t.Errorf("payload identity fields: %v", payload)
	}
	if spread := payload["current_spread"].(float64); spread < 1.19 || spread > 1.21 {
		t.Errorf("current_spread = %v, want ~1.2", spread)
	}

	if _, ok := registry.Lookup("EURUSD", "BrokerA"); !ok {
		t.Error("tick must create the registry pair")
	}
	if len(broadcaster.spreads) != 1 {
		t.Fatalf("broadcast count = %d, want 1", len(broadcaster.spreads))
	}
	if broadcaster.brokers[0] != "BrokerA" || broadcaster.symbols[0] != "EURUSD" {
		t.Errorf("broadcast identity: %v %v", broadcaster.brokers, broadcaster.symbols)
	}
}

func TestHandleTickInvalidPayloads(t *testing.T) {
	h, _, broadcaster := newTestHandler()

	tests := []struct {
		name string
		body string
	}{
		{"wrong field count", "BrokerA,EURUSD,1.10000,1.10012"},
		{"empty body", ""},
		{"garbage bid", "BrokerA,EURUSD,0,1.2.3,1.10012"},
		{"empty broker", ",EURUSD,0,1.10000,1.10012"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := postCSV(t, h.HandleTick, "/tick", tt.body)
			if payload["status"] != "invalid_format" {
				t.Errorf("status = %v, want invalid_format", payload["status"])
			}
		})
	}

	if len(broadcaster.spreads) != 0 {
		t.Errorf("invalid ticks must not be broadcast, got %d", len(broadcaster.spreads))
	}
}

func TestHandleSlippageTest(t *testing.T) {
	h, registry, _ := newTestHandler()

	postCSV(t, h.HandleTick, "/tick", "BrokerA,EURUSD,0,1.10000,1.10010")

	payload := postCSV(t, h.HandleSlippageTest, "/slippage_test", "BrokerA,EURUSD,0,BUY,1.10000,0")
	if payload["status"] != "slippage_test_received" {
		t.Fatalf("status = %v, want slippage_test_received", payload["status"])
	}

	b, _ := registry.Lookup("EURUSD", "BrokerA")
	if got := len(b.Snapshot(-1).Slippages); got != 1 {
		t.Errorf("slippage samples = %d, want 1", got)
	}

	payload = postCSV(t, h.HandleSlippageTest, "/slippage_test", "BrokerA,EURUSD,0,HOLD,1.10000,0")
	if payload["status"] != "invalid_format" {
		t.Errorf("unknown order type status = %v, want invalid_format", payload["status"])
	}
}

func TestHandleLatencyTest(t *testing.T) {
	h, registry, _ := newTestHandler()

	postCSV(t, h.HandleTick, "/tick", "BrokerA,EURUSD,0,1.10000,1.10010")

	// server clock = 100s -> 100000 ms; клиент отправил в 99800
	payload := postCSV(t, h.HandleLatencyTest, "/latency_test", "BrokerA,EURUSD,99800")
	if payload["status"] != "latency_sample_received" {
		t.Fatalf("status = %v, want latency_sample_received", payload["status"])
	}

	b, _ := registry.Lookup("EURUSD", "BrokerA")
	view := b.Snapshot(-1)
	if len(view.Latencies) != 1 || view.Latencies[0] != 200 {
		t.Errorf("latencies = %v, want [200]", view.Latencies)
	}

	payload = postCSV(t, h.HandleLatencyTest, "/latency_test", "BrokerA,EURUSD")
	if payload["status"] != "invalid_format" {
		t.Errorf("short payload status = %v, want invalid_format", payload["status"])
	}
}

func TestHandleLiveAnalysisEmpty(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/live_analysis", nil)
	rec := httptest.NewRecorder()
	h.HandleLiveAnalysis(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Errorf("empty snapshot body = %q, want {}", got)
	}
}

func TestHandleHealth(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
