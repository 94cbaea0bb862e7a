package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

const owner = "operator"

var errBoom = errors.New("boom")

type fakeOracle struct {
	mu   sync.Mutex
	seq  int
	fail error
}

func (o *fakeOracle) RequestRandomness(context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return "", o.fail
	}
	o.seq++
	return fmt.Sprintf("req-%d", o.seq), nil
}

type transfer struct {
	To     string
	Amount uint64
	Ref    string
}

// fakePayer deduplica por ref como a carteira: calls conta as tentativas,
// transfers só os pagamentos efetivos.
type fakePayer struct {
	transfers []transfer
	calls     int
	fail      error
}

func (p *fakePayer) Transfer(_ context.Context, to string, amount uint64, ref string) error {
	p.calls++
	if p.fail != nil {
		return p.fail
	}
	for _, t := range p.transfers {
		if t.Ref == ref {
			return nil
		}
	}
	p.transfers = append(p.transfers, transfer{To: to, Amount: amount, Ref: ref})
	return nil
}

func (p *fakePayer) total() uint64 {
	var sum uint64
	for _, t := range p.transfers {
		sum += t.Amount
	}
	return sum
}

type fakeStore struct {
	snap        Snapshot
	found       bool
	transitions []Transition
	commits     int
	fail        error
}

func (s *fakeStore) Commit(_ context.Context, snap Snapshot, transitions []Transition) error {
	if s.fail != nil {
		return s.fail
	}
	s.commits++
	s.snap = snap
	s.found = true
	s.transitions = append(s.transitions, transitions...)
	return nil
}

func (s *fakeStore) Load(context.Context) (Snapshot, bool, error) {
	return s.snap, s.found, nil
}

type fakePublisher struct {
	events []events.GameEvent
}

func (p *fakePublisher) Publish(_ context.Context, e events.GameEvent) error {
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	eng    *Engine
	oracle *fakeOracle
	payer  *fakePayer
	store  *fakeStore
	publ   *fakePublisher
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		oracle: &fakeOracle{},
		payer:  &fakePayer{},
		store:  &fakeStore{},
		publ:   &fakePublisher{},
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eng, err := New(zap.NewNop(), owner, cfg, h.oracle,
		WithPayer(h.payer),
		WithStore(h.store),
		WithPublisher(h.publ),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.eng = eng
	return h
}

func (h *harness) fund(t *testing.T, amount uint64) {
	t.Helper()
	if err := h.eng.Fund(context.Background(), owner, amount); err != nil {
		t.Fatalf("Fund(%d): %v", amount, err)
	}
}

func (h *harness) bet(t *testing.T, bettor string, amount uint64) string {
	t.Helper()
	id, err := h.eng.AcceptBet(context.Background(), bettor, amount)
	if err != nil {
		t.Fatalf("AcceptBet(%s, %d): %v", bettor, amount, err)
	}
	return id
}

func expectBalance(t *testing.T, e *Engine, want uint64) {
	t.Helper()
	if got := e.Balance(); got != want {
		t.Errorf("expected balance %d, got %d", want, got)
	}
}

func expectQueued(t *testing.T, e *Engine, want int) {
	t.Helper()
	if got := len(e.PendingTransfers()); got != want {
		t.Errorf("expected %d queued transfers, got %d", want, got)
	}
}

func expectPending(t *testing.T, e *Engine, want int) {
	t.Helper()
	if got := len(e.UnsettledBets()); got != want {
		t.Errorf("expected %d pending bets, got %d", want, got)
	}
}
