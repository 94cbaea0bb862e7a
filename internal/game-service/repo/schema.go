package repo

import (
	"context"
	"fmt"
)

// Valores uint64 são gravados como TEXT decimal: BIGINT do Postgres é com sinal
// e não comporta a faixa inteira.
var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS game_state (
			id             INTEGER PRIMARY KEY,
			balance        TEXT    NOT NULL,
			minimum_bet    TEXT    NOT NULL,
			house_edge_bps INTEGER NOT NULL,
			updated_at_ms  BIGINT  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_bets (
			request_id   TEXT   PRIMARY KEY,
			bettor       TEXT   NOT NULL,
			amount       TEXT   NOT NULL,
			payout       TEXT   NOT NULL,
			placed_at_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bet_transactions (
			id            BIGSERIAL PRIMARY KEY,
			request_id    TEXT   NOT NULL,
			bettor        TEXT   NOT NULL,
			amount        TEXT   NOT NULL,
			payout        TEXT   NOT NULL,
			old_status    TEXT   NOT NULL,
			new_status    TEXT   NOT NULL,
			outcome       TEXT   NOT NULL,
			created_at_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_transfers (
			ref           TEXT   PRIMARY KEY,
			recipient     TEXT   NOT NULL,
			amount        TEXT   NOT NULL,
			created_at_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bet_transactions_request ON bet_transactions (request_id)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS game_state (
			id             INTEGER PRIMARY KEY,
			balance        TEXT    NOT NULL,
			minimum_bet    TEXT    NOT NULL,
			house_edge_bps INTEGER NOT NULL,
			updated_at_ms  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_bets (
			request_id   TEXT    PRIMARY KEY,
			bettor       TEXT    NOT NULL,
			amount       TEXT    NOT NULL,
			payout       TEXT    NOT NULL,
			placed_at_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bet_transactions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id    TEXT    NOT NULL,
			bettor        TEXT    NOT NULL,
			amount        TEXT    NOT NULL,
			payout        TEXT    NOT NULL,
			old_status    TEXT    NOT NULL,
			new_status    TEXT    NOT NULL,
			outcome       TEXT    NOT NULL,
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pending_transfers (
			ref           TEXT    PRIMARY KEY,
			recipient     TEXT    NOT NULL,
			amount        TEXT    NOT NULL,
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bet_transactions_request ON bet_transactions (request_id)`,
	},
}

// EnsureSchema cria as tabelas do jogo se ainda não existirem
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema[s.dialect] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
