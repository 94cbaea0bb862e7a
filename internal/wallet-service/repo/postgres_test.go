package repo

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/radieske/gamble-game-poc/internal/shared/db"
)

// Roda contra um Postgres real: WALLET_TEST_POSTGRES_DSN aponta para um banco
// descartável (ex.: o do docker-compose).
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("WALLET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WALLET_TEST_POSTGRES_DSN not set")
	}
	conn, err := db.ConnectPostgres(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	p := NewPostgres(conn)
	if err := p.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return p
}

func countCredits(t *testing.T, p *Postgres, walletID, ref string) int {
	t.Helper()
	var n int
	err := p.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM wallet_ledger WHERE wallet_id=$1 AND operation_type='CREDIT' AND description=$2`,
		walletID, "deposit:"+ref).Scan(&n)
	if err != nil {
		t.Fatalf("count credits: %v", err)
	}
	return n
}

func TestDeposit_SameRefCreditsOnce(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	user := "alice-" + uuid.NewString()

	walletID, bal, err := p.Deposit(ctx, user, 200, "payout:req-1")
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if bal != 200 {
		t.Errorf("expected balance 200, got %d", bal)
	}

	again, bal, err := p.Deposit(ctx, user, 200, "payout:req-1")
	if err != nil {
		t.Fatalf("repeat Deposit: %v", err)
	}
	if again != walletID || bal != 200 {
		t.Errorf("expected same wallet with balance 200, got %s %d", again, bal)
	}
	if n := countCredits(t, p, walletID, "payout:req-1"); n != 1 {
		t.Errorf("expected 1 credit, got %d", n)
	}

	// outra ref credita normalmente
	if _, bal, err = p.Deposit(ctx, user, 100, "refund:req-2"); err != nil || bal != 300 {
		t.Errorf("expected balance 300, got %d (%v)", bal, err)
	}
}

func TestDeposit_EmptyRefAlwaysCredits(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	user := "dave-" + uuid.NewString()

	for i := 0; i < 2; i++ {
		if _, _, err := p.Deposit(ctx, user, 10, ""); err != nil {
			t.Fatalf("Deposit #%d: %v", i+1, err)
		}
	}
	if _, bal, err := p.GetOrCreateWallet(ctx, user); err != nil || bal != 20 {
		t.Errorf("expected balance 20, got %d (%v)", bal, err)
	}
}

func TestDeposit_ConcurrentSameRefCreditsOnce(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	user := "bob-" + uuid.NewString()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := p.Deposit(ctx, user, 50, "withdraw:w-1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Deposit: %v", err)
	}

	walletID, bal, err := p.GetOrCreateWallet(ctx, user)
	if err != nil {
		t.Fatalf("GetOrCreateWallet: %v", err)
	}
	if bal != 50 {
		t.Errorf("expected balance 50, got %d", bal)
	}
	if n := countCredits(t, p, walletID, "withdraw:w-1"); n != 1 {
		t.Errorf("expected 1 credit, got %d", n)
	}
}

func TestReserve_SameRefIsIdempotent(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	user := "carol-" + uuid.NewString()

	if _, _, err := p.Deposit(ctx, user, 100, "seed"); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	first, err := p.Reserve(ctx, user, 80, "bet-1")
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	// saldo já não cobre 80, mas a reserva existente volta antes da checagem
	second, err := p.Reserve(ctx, user, 80, "bet-1")
	if err != nil || second != first {
		t.Fatalf("expected reservation %s, got %s (%v)", first, second, err)
	}
	if err := p.Refund(ctx, user, "bet-1"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := p.Refund(ctx, user, "bet-1"); err != nil {
		t.Fatalf("repeat Refund: %v", err)
	}
	if _, bal, err := p.GetOrCreateWallet(ctx, user); err != nil || bal != 100 {
		t.Errorf("expected balance 100, got %d (%v)", bal, err)
	}
}
