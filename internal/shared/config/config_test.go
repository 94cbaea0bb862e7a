package config

import (
	"testing"
	"time"
)

func TestLoad_ServicePorts(t *testing.T) {
	tests := []struct {
		service, http, metrics string
	}{
		{"game-service", "8083", "9099"},
		{"wallet-service", "8082", "9098"},
		{"oracle-simulator", "", "9094"},
		{"api-gateway", "8000", "9093"},
		{"", "8080", "9095"},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			t.Setenv("SERVICE_NAME", tt.service)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.HTTPPort != tt.http || cfg.MetricsPort != tt.metrics {
				t.Errorf("expected ports %q/%q, got %q/%q", tt.http, tt.metrics, cfg.HTTPPort, cfg.MetricsPort)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TopicRandomnessRequested != "randomness_requested" || cfg.TopicGameEvents != "game_events" {
		t.Errorf("unexpected topics: %s, %s", cfg.TopicRandomnessRequested, cfg.TopicGameEvents)
	}
	if cfg.Game.OperatorID != "operator" || cfg.Game.MinimumBet != 100 || cfg.Game.OutcomePolicy != "parity" {
		t.Errorf("unexpected game defaults: %+v", cfg.Game)
	}
	if cfg.Oracle.MaxDelay != 5*time.Second {
		t.Errorf("expected 5s max delay, got %v", cfg.Oracle.MaxDelay)
	}
	if cfg.Game.TransferRetryInterval != 10*time.Second {
		t.Errorf("expected 10s transfer retry, got %v", cfg.Game.TransferRetryInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HOUSE_EDGE_BPS", "250")
	t.Setenv("KAFKA_TOPIC_GAME_EVENTS", "game_events_v2")
	t.Setenv("ORACLE_DROP_RATE", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.HouseEdgeBps != 250 || cfg.TopicGameEvents != "game_events_v2" || cfg.Oracle.DropRate != 0.1 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("edge out of range", func(t *testing.T) {
		t.Setenv("HOUSE_EDGE_BPS", "10001")
		if _, err := Load(); err == nil {
			t.Error("expected error for house edge above 10000")
		}
	})
	t.Run("not a number", func(t *testing.T) {
		t.Setenv("MINIMUM_BET", "abc")
		if _, err := Load(); err == nil {
			t.Error("expected parse error")
		}
	})
}
