package repo

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
	"github.com/radieske/gamble-game-poc/internal/shared/db"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

func openTempStore(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	s := NewSQLStore(conn, SQLite)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"postgres", "sqlite"} {
		if _, err := ParseDialect(name); err != nil {
			t.Errorf("ParseDialect(%s): %v", name, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: Postgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("unexpected postgres query %q", got)
	}
	lite := &SQLStore{dialect: SQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("unexpected sqlite query %q", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	s := openTempStore(t)

	_, found, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("expected no persisted state")
	}
}

func TestCommitLoadRoundTrip(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	placed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a := engine.Bet{RequestID: "req-a", Bettor: "alice", Amount: 100, Payout: 200, PlacedAt: placed, Status: engine.StatusPending}
	b := engine.Bet{RequestID: "req-b", Bettor: "bob", Amount: math.MaxUint64 / 4, Payout: math.MaxUint64 / 2, PlacedAt: placed.Add(time.Second), Status: engine.StatusPending}

	snap := engine.Snapshot{
		Balance: math.MaxUint64,
		Config:  engine.Config{MinimumBet: 10, HouseEdgeBps: 250},
		Pending: []engine.Bet{a, b},
	}
	trs := []engine.Transition{{Bet: a, At: placed}, {Bet: b, At: placed.Add(time.Second)}}
	if err := s.Commit(ctx, snap, trs); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, found, err := s.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if got.Balance != snap.Balance || got.Config != snap.Config {
		t.Errorf("expected %+v, got %+v", snap, got)
	}
	if len(got.Pending) != 2 {
		t.Fatalf("expected 2 pending bets, got %d", len(got.Pending))
	}
	for i, want := range []engine.Bet{a, b} {
		g := got.Pending[i]
		if g.RequestID != want.RequestID || g.Bettor != want.Bettor || g.Amount != want.Amount || g.Payout != want.Payout {
			t.Errorf("pending[%d]: expected %+v, got %+v", i, want, g)
		}
		if !g.PlacedAt.Equal(want.PlacedAt) || g.Status != engine.StatusPending {
			t.Errorf("pending[%d]: unexpected time/status %v %s", i, g.PlacedAt, g.Status)
		}
	}
}

func TestCommitReplacesPendingAndAppendsHistory(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	bet := engine.Bet{RequestID: "req-1", Bettor: "alice", Amount: 100, Payout: 200, PlacedAt: at, Status: engine.StatusPending}
	if err := s.Commit(ctx, engine.Snapshot{Balance: 1100, Pending: []engine.Bet{bet}}, []engine.Transition{{Bet: bet, At: at}}); err != nil {
		t.Fatalf("commit accept: %v", err)
	}

	settled := bet
	settled.Status = engine.StatusSettled
	tr := engine.Transition{Bet: settled, From: engine.StatusPending, Outcome: events.OutcomeWin, At: at.Add(time.Minute)}
	if err := s.Commit(ctx, engine.Snapshot{Balance: 900}, []engine.Transition{tr}); err != nil {
		t.Fatalf("commit settle: %v", err)
	}

	got, _, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Balance != 900 || len(got.Pending) != 0 {
		t.Errorf("expected balance 900 and no pending bets, got %+v", got)
	}

	hist, err := s.History(ctx, "req-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(hist))
	}
	if hist[0].Bet.Status != engine.StatusPending || hist[0].From != "" {
		t.Errorf("unexpected first transition %+v", hist[0])
	}
	last := hist[1]
	if last.From != engine.StatusPending || last.Bet.Status != engine.StatusSettled || last.Outcome != events.OutcomeWin || last.Bet.Payout != 200 {
		t.Errorf("unexpected last transition %+v", last)
	}
	if !last.At.Equal(tr.At) {
		t.Errorf("expected transition time %v, got %v", tr.At, last.At)
	}
}

func TestEngineRestoresFromSQLite(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	first, err := engine.New(nil, "operator", engine.Config{MinimumBet: 1}, &seqOracle{}, engine.WithStore(s))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := first.Fund(ctx, "operator", 1000); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	id, err := first.AcceptBet(ctx, "alice", 100)
	if err != nil {
		t.Fatalf("AcceptBet: %v", err)
	}

	// novo processo: o estado volta do banco
	second, err := engine.New(nil, "operator", engine.Config{MinimumBet: 999}, &seqOracle{}, engine.WithStore(s))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if second.Balance() != 1100 || len(second.UnsettledBets()) != 1 || second.Config().MinimumBet != 1 {
		t.Fatalf("unexpected restored state: balance=%d pending=%d cfg=%+v",
			second.Balance(), len(second.UnsettledBets()), second.Config())
	}

	refunded, err := second.RefundAll(ctx, "operator")
	if err != nil || len(refunded) != 1 || refunded[0].RequestID != id {
		t.Fatalf("RefundAll: %v %+v", err, refunded)
	}
	hist, err := s.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 || hist[1].Bet.Status != engine.StatusRefunded {
		t.Errorf("expected PENDING then REFUNDED, got %+v", hist)
	}
}

func TestCommitLoadPendingTransfers(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	queued := []engine.PendingTransfer{
		{Ref: "payout:req-1", To: "alice", Amount: 200, CreatedAt: at},
		{Ref: "refund:req-2", To: "bob", Amount: math.MaxUint64, CreatedAt: at.Add(time.Second)},
	}
	if err := s.Commit(ctx, engine.Snapshot{Balance: 800, Transfers: queued}, nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Transfers) != 2 {
		t.Fatalf("expected 2 queued transfers, got %+v", got.Transfers)
	}
	for i, want := range queued {
		g := got.Transfers[i]
		if g.Ref != want.Ref || g.To != want.To || g.Amount != want.Amount || !g.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("transfer[%d]: expected %+v, got %+v", i, want, g)
		}
	}

	// confirmada a primeira, só a segunda continua gravada
	if err := s.Commit(ctx, engine.Snapshot{Balance: 800, Transfers: queued[1:]}, nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Transfers) != 1 || got.Transfers[0].Ref != "refund:req-2" {
		t.Errorf("expected only refund:req-2 queued, got %+v", got.Transfers)
	}
}

func TestEngineRetriesQueuedPayoutAfterRestart(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	down := &recPayer{fail: fmt.Errorf("wallet unavailable")}
	first, err := engine.New(nil, "operator", engine.Config{MinimumBet: 1}, &seqOracle{},
		engine.WithStore(s), engine.WithPayer(down))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := first.Fund(ctx, "operator", 1000); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	id, err := first.AcceptBet(ctx, "alice", 100)
	if err != nil {
		t.Fatalf("AcceptBet: %v", err)
	}
	if _, err := first.FulfillRandomness(ctx, id, big.NewInt(3)); err != nil {
		t.Fatalf("FulfillRandomness: %v", err)
	}

	// novo processo com a carteira de volta: o prêmio sai da fila gravada
	up := &recPayer{}
	second, err := engine.New(nil, "operator", engine.Config{}, &seqOracle{},
		engine.WithStore(s), engine.WithPayer(up))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n := len(second.PendingTransfers()); n != 1 {
		t.Fatalf("expected 1 restored transfer, got %d", n)
	}
	left, err := second.DrainTransfers(ctx)
	if err != nil || left != 0 {
		t.Fatalf("DrainTransfers: left=%d err=%v", left, err)
	}
	if len(up.refs) != 1 || up.refs[0] != "payout:"+id {
		t.Errorf("expected one transfer payout:%s, got %v", id, up.refs)
	}

	got, _, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Transfers) != 0 || got.Balance != 900 {
		t.Errorf("expected empty queue and balance 900, got %+v", got)
	}
}

type recPayer struct {
	fail error
	refs []string
}

func (p *recPayer) Transfer(_ context.Context, _ string, _ uint64, ref string) error {
	if p.fail != nil {
		return p.fail
	}
	p.refs = append(p.refs, ref)
	return nil
}

type seqOracle struct{ n int }

func (o *seqOracle) RequestRandomness(context.Context) (string, error) {
	o.n++
	return fmt.Sprintf("seq-%d", o.n), nil
}
