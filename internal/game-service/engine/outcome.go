package engine

import (
	"fmt"
	"math/big"
	"math/bits"
)

const bpsDenominator = 10000

// OutcomePolicy decide, de forma determinística, se um valor aleatório do
// oráculo resulta em vitória do apostador.
type OutcomePolicy interface {
	Wins(randomValue *big.Int) bool
	Name() string
}

// ParityPolicy: valor ímpar ganha. Probabilidade 1/2 para um valor uniforme.
type ParityPolicy struct{}

func (ParityPolicy) Wins(v *big.Int) bool { return v.Bit(0) == 1 }
func (ParityPolicy) Name() string         { return "parity" }

// ThresholdPolicy: ganha quando valor mod 10000 < WinBps.
// WinBps = 5000 equivale a 50% de chance.
type ThresholdPolicy struct {
	WinBps uint64
}

func (p ThresholdPolicy) Wins(v *big.Int) bool {
	r := new(big.Int).Mod(v, big.NewInt(bpsDenominator))
	return r.Uint64() < p.WinBps
}

func (p ThresholdPolicy) Name() string { return fmt.Sprintf("threshold(%d)", p.WinBps) }

// PolicyByName resolve a política configurada via OUTCOME_POLICY
func PolicyByName(name string, winBps uint64) (OutcomePolicy, error) {
	switch name {
	case "", "parity":
		return ParityPolicy{}, nil
	case "threshold":
		if winBps > bpsDenominator {
			return nil, fmt.Errorf("win threshold out of range: %d", winBps)
		}
		return ThresholdPolicy{WinBps: winBps}, nil
	default:
		return nil, fmt.Errorf("unknown outcome policy %q", name)
	}
}

// WinPayout calcula amount * 2 * (10000 - edgeBps) / 10000 em 128 bits.
// ok=false quando o resultado não cabe em uint64.
func WinPayout(amount, edgeBps uint64) (payout uint64, ok bool) {
	if edgeBps > bpsDenominator {
		return 0, false
	}
	hi, lo := bits.Mul64(amount, 2*(bpsDenominator-edgeBps))
	if hi >= bpsDenominator {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, bpsDenominator)
	return q, true
}
