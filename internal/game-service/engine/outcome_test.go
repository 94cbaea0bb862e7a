package engine

import (
	"math"
	"math/big"
	"testing"
)

func TestParityPolicy(t *testing.T) {
	p := ParityPolicy{}
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	tests := []struct {
		value *big.Int
		want  bool
	}{
		{big.NewInt(0), false},
		{big.NewInt(1), true},
		{big.NewInt(2), false},
		{big.NewInt(77), true},
		{huge, true},
	}
	for _, tt := range tests {
		if got := p.Wins(tt.value); got != tt.want {
			t.Errorf("Wins(%s): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestThresholdPolicy(t *testing.T) {
	p := ThresholdPolicy{WinBps: 2500}

	if !p.Wins(big.NewInt(2499)) {
		t.Error("expected 2499 to win")
	}
	if p.Wins(big.NewInt(2500)) {
		t.Error("expected 2500 to lose")
	}
	if !p.Wins(big.NewInt(10_000 + 10)) {
		t.Error("expected 10010 to win (mod 10000 = 10)")
	}
	if (ThresholdPolicy{WinBps: 0}).Wins(big.NewInt(0)) {
		t.Error("expected zero threshold to never win")
	}
}

func TestPolicyByName(t *testing.T) {
	if p, err := PolicyByName("", 0); err != nil || p.Name() != "parity" {
		t.Errorf("expected parity default, got %v, %v", p, err)
	}
	if p, err := PolicyByName("threshold", 4000); err != nil || p.Name() != "threshold(4000)" {
		t.Errorf("expected threshold(4000), got %v, %v", p, err)
	}
	if _, err := PolicyByName("threshold", 10001); err == nil {
		t.Error("expected error for threshold out of range")
	}
	if _, err := PolicyByName("dice", 0); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestWinPayout(t *testing.T) {
	tests := []struct {
		amount  uint64
		edgeBps uint64
		want    uint64
		ok      bool
	}{
		{100, 0, 200, true},
		{100, 250, 195, true},
		{100, 10000, 0, true},
		{1, 1, 1, true}, // 1.9998 truncado
		{math.MaxUint64 / 2, 0, math.MaxUint64 - 1, true},
		{math.MaxUint64, 0, 0, false},
		{math.MaxUint64, 5000, math.MaxUint64, true},
		{100, 10001, 0, false},
	}
	for _, tt := range tests {
		got, ok := WinPayout(tt.amount, tt.edgeBps)
		if got != tt.want || ok != tt.ok {
			t.Errorf("WinPayout(%d, %d): expected (%d, %v), got (%d, %v)", tt.amount, tt.edgeBps, tt.want, tt.ok, got, ok)
		}
	}
}

func TestQuote(t *testing.T) {
	cfg := Config{MinimumBet: 10}

	if _, err := quote(9, cfg, 1000, 0); err != ErrBetTooSmall {
		t.Errorf("expected ErrBetTooSmall, got %v", err)
	}
	if _, err := quote(math.MaxUint64, Config{HouseEdgeBps: 5000}, 1, 0); err != ErrBetTooLarge {
		t.Errorf("expected ErrBetTooLarge on balance overflow, got %v", err)
	}
	b, err := quote(10, cfg, 1000, 0)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if b.Payout != 20 || b.Liability() != 20 {
		t.Errorf("expected payout and liability 20, got %+v", b)
	}
	if _, err := quote(10, cfg, 10, 11); err != ErrBetTooLarge {
		t.Errorf("expected ErrBetTooLarge with exhausted pool, got %v", err)
	}
}
