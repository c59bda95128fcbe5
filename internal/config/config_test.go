package config

import (
	"math"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Analysis.Interval.Seconds() != 1.0 {
		t.Errorf("default analysis interval = %v, want 1s", cfg.Analysis.Interval)
	}
	if cfg.Analysis.FeedFreezeThreshold != 10.0 {
		t.Errorf("default freeze threshold = %v, want 10", cfg.Analysis.FeedFreezeThreshold)
	}
	if cfg.Buffers.Ticks != 500 {
		t.Errorf("default tick buffer = %d, want 500", cfg.Buffers.Ticks)
	}
	if cfg.Buffers.ScoreHistory != 8*3600 {
		t.Errorf("default score history = %d, want %d", cfg.Buffers.ScoreHistory, 8*3600)
	}
}

func TestWeightSumIsExactlyOne(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	sum := cfg.Scoring.WeightSum()
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weight sum = %v, want 1.0", sum)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	cfg.Scoring.WeightAuthenticity = 0.5 // сумма становится 1.2
	if err := cfg.validate(); err == nil {
		t.Error("validate() should reject weights not summing to 1.0")
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Analysis.Interval = 0 }},
		{"decay rate above one", func(c *Config) { c.Analysis.PenaltyDecayRate = 1.5 }},
		{"negative tick buffer", func(c *Config) { c.Buffers.Ticks = -1 }},
		{"zero score history", func(c *Config) { c.Buffers.ScoreHistory = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"latency range inverted", func(c *Config) { c.Ingest.MaxLatencyMS = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("validate() should have returned an error")
			}
		})
	}
}
