package ratelimit

import (
	"testing"
)

func TestLimiterBurst(t *testing.T) {
	// burst 5 -> первые 5 запросов проходят, шестой отклоняется
	limiter := NewLimiter(1, 5)

	for i := 0; i < 5; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if limiter.Allow() {
		t.Error("request beyond burst should be rejected")
	}
}

func TestLimiterDefaults(t *testing.T) {
	tests := []struct {
		name          string
		rate, burst   float64
		expectedRate  float64
		expectedBurst float64
	}{
		{"zero rate", 0, 0, 10, 20},
		{"negative rate", -1, 0, 10, 20},
		{"burst below rate", 10, 5, 10, 10},
		{"explicit values", 100, 200, 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(tt.rate, tt.burst)
			if limiter.rate != tt.expectedRate {
				t.Errorf("rate = %v, want %v", limiter.rate, tt.expectedRate)
			}
			if limiter.burst != tt.expectedBurst {
				t.Errorf("burst = %v, want %v", limiter.burst, tt.expectedBurst)
			}
		})
	}
}

func TestKeyedLimiterIsolation(t *testing.T) {
	kl := NewKeyedLimiter(1, 2)

	// Исчерпываем лимит первого клиента
	if !kl.Allow("10.0.0.1") || !kl.Allow("10.0.0.1") {
		t.Fatal("first client should pass within burst")
	}
	if kl.Allow("10.0.0.1") {
		t.Error("first client should be limited after burst")
	}

	// Второй клиент имеет собственное ведро
	if !kl.Allow("10.0.0.2") {
		t.Error("second client must not be affected by first client's limit")
	}

	if kl.Len() != 2 {
		t.Errorf("expected 2 tracked keys, got %d", kl.Len())
	}
}
