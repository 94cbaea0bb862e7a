package repo

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id            TEXT    PRIMARY KEY,
		user_id       TEXT    NOT NULL UNIQUE,
		balance_cents BIGINT  NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		version       INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_reservations (
		id           TEXT   PRIMARY KEY,
		wallet_id    TEXT   NOT NULL REFERENCES wallets (id),
		external_ref TEXT   NOT NULL,
		amount_cents BIGINT NOT NULL,
		status       TEXT   NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (wallet_id, external_ref)
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id             BIGSERIAL PRIMARY KEY,
		wallet_id      TEXT   NOT NULL REFERENCES wallets (id),
		operation_type TEXT   NOT NULL,
		amount_cents   BIGINT NOT NULL,
		description    TEXT   NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_ledger_description ON wallet_ledger (wallet_id, description)`,
	// um crédito por external_ref; depósito manual (ref vazia) fica de fora
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_wallet_ledger_credit_ref
		ON wallet_ledger (wallet_id, description)
		WHERE operation_type = 'CREDIT' AND description <> 'deposit:'`,
}

// EnsureSchema cria as tabelas da carteira se ainda não existirem
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure wallet schema: %w", err)
		}
	}
	return nil
}
