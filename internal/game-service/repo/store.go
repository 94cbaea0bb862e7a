package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect valida o STORE_DRIVER configurado
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(s); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unknown store driver %q", s)
	}
}

// SQLStore implementa engine.Store sobre Postgres ou SQLite.
// game_state tem uma única linha (id=1); pending_bets espelha o conjunto
// pendente; pending_transfers é a fila de transferências ainda não confirmadas;
// bet_transactions é o histórico append-only de transições.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Commit grava estado, conjunto pendente, fila de transferências e transições
// numa única transação
func (s *SQLStore) Commit(ctx context.Context, snap engine.Snapshot, transitions []engine.Transition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO game_state (id, balance, minimum_bet, house_edge_bps, updated_at_ms)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			balance = excluded.balance,
			minimum_bet = excluded.minimum_bet,
			house_edge_bps = excluded.house_edge_bps,
			updated_at_ms = excluded.updated_at_ms`),
		u64(snap.Balance), u64(snap.Config.MinimumBet), int64(snap.Config.HouseEdgeBps), time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert game state: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM pending_bets`); err != nil {
		return fmt.Errorf("clear pending bets: %w", err)
	}
	insertPending := s.rebind(`
		INSERT INTO pending_bets (request_id, bettor, amount, payout, placed_at_ms)
		VALUES (?, ?, ?, ?, ?)`)
	for _, b := range snap.Pending {
		if _, err = tx.ExecContext(ctx, insertPending,
			b.RequestID, b.Bettor, u64(b.Amount), u64(b.Payout), b.PlacedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert pending bet %s: %w", b.RequestID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM pending_transfers`); err != nil {
		return fmt.Errorf("clear pending transfers: %w", err)
	}
	insertTransfer := s.rebind(`
		INSERT INTO pending_transfers (ref, recipient, amount, created_at_ms)
		VALUES (?, ?, ?, ?)`)
	for _, t := range snap.Transfers {
		if _, err = tx.ExecContext(ctx, insertTransfer,
			t.Ref, t.To, u64(t.Amount), t.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert pending transfer %s: %w", t.Ref, err)
		}
	}

	insertTx := s.rebind(`
		INSERT INTO bet_transactions (request_id, bettor, amount, payout, old_status, new_status, outcome, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, t := range transitions {
		if _, err = tx.ExecContext(ctx, insertTx,
			t.Bet.RequestID, t.Bet.Bettor, u64(t.Bet.Amount), u64(t.Bet.Payout),
			string(t.From), string(t.Bet.Status), t.Outcome, t.At.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert bet transaction %s: %w", t.Bet.RequestID, err)
		}
	}

	return tx.Commit()
}

// Load lê o estado salvo; found=false quando o jogo nunca foi persistido
func (s *SQLStore) Load(ctx context.Context) (engine.Snapshot, bool, error) {
	var (
		snap                engine.Snapshot
		balance, minimumBet string
		houseEdgeBps        int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT balance, minimum_bet, house_edge_bps FROM game_state WHERE id = 1`,
	).Scan(&balance, &minimumBet, &houseEdgeBps)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Snapshot{}, false, nil
	}
	if err != nil {
		return engine.Snapshot{}, false, fmt.Errorf("select game state: %w", err)
	}

	if snap.Balance, err = parseU64(balance); err != nil {
		return engine.Snapshot{}, false, err
	}
	if snap.Config.MinimumBet, err = parseU64(minimumBet); err != nil {
		return engine.Snapshot{}, false, err
	}
	snap.Config.HouseEdgeBps = uint64(houseEdgeBps)

	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, bettor, amount, payout, placed_at_ms
		FROM pending_bets
		ORDER BY placed_at_ms, request_id`)
	if err != nil {
		return engine.Snapshot{}, false, fmt.Errorf("select pending bets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b              engine.Bet
			amount, payout string
			placedAtMs     int64
		)
		if err := rows.Scan(&b.RequestID, &b.Bettor, &amount, &payout, &placedAtMs); err != nil {
			return engine.Snapshot{}, false, err
		}
		if b.Amount, err = parseU64(amount); err != nil {
			return engine.Snapshot{}, false, err
		}
		if b.Payout, err = parseU64(payout); err != nil {
			return engine.Snapshot{}, false, err
		}
		b.PlacedAt = time.UnixMilli(placedAtMs).UTC()
		b.Status = engine.StatusPending
		snap.Pending = append(snap.Pending, b)
	}
	if err := rows.Err(); err != nil {
		return engine.Snapshot{}, false, err
	}

	if snap.Transfers, err = s.loadTransfers(ctx); err != nil {
		return engine.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *SQLStore) loadTransfers(ctx context.Context) ([]engine.PendingTransfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, recipient, amount, created_at_ms
		FROM pending_transfers
		ORDER BY created_at_ms, ref`)
	if err != nil {
		return nil, fmt.Errorf("select pending transfers: %w", err)
	}
	defer rows.Close()

	var out []engine.PendingTransfer
	for rows.Next() {
		var (
			t           engine.PendingTransfer
			amount      string
			createdAtMs int64
		)
		if err := rows.Scan(&t.Ref, &t.To, &amount, &createdAtMs); err != nil {
			return nil, err
		}
		if t.Amount, err = parseU64(amount); err != nil {
			return nil, err
		}
		t.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// History retorna as transições de uma aposta em ordem de gravação
func (s *SQLStore) History(ctx context.Context, requestID string) ([]engine.Transition, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT request_id, bettor, amount, payout, old_status, new_status, outcome, created_at_ms
		FROM bet_transactions
		WHERE request_id = ?
		ORDER BY id`), requestID)
	if err != nil {
		return nil, fmt.Errorf("select bet transactions: %w", err)
	}
	defer rows.Close()

	var out []engine.Transition
	for rows.Next() {
		var (
			t                    engine.Transition
			amount, payout       string
			oldStatus, newStatus string
			atMs                 int64
		)
		if err := rows.Scan(&t.Bet.RequestID, &t.Bet.Bettor, &amount, &payout, &oldStatus, &newStatus, &t.Outcome, &atMs); err != nil {
			return nil, err
		}
		if t.Bet.Amount, err = parseU64(amount); err != nil {
			return nil, err
		}
		if t.Bet.Payout, err = parseU64(payout); err != nil {
			return nil, err
		}
		t.From = engine.Status(oldStatus)
		t.Bet.Status = engine.Status(newStatus)
		t.At = time.UnixMilli(atMs).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ping verifica a conexão (healthz)
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind troca os placeholders "?" por "$n" no Postgres
func (s *SQLStore) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return v, nil
}
