package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// Status de reserva
const (
	ReservationPending   = "PENDING"
	ReservationCommitted = "COMMITTED"
	ReservationRefunded  = "REFUNDED"
)

// Ping verifica a conexão (healthz)
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	if walletID, err = lockWallet(ctx, tx, userID, true); err != nil {
		return "", 0, err
	}
	if balance, err = walletBalance(ctx, tx, walletID); err != nil {
		return "", 0, err
	}
	return walletID, balance, tx.Commit()
}

// Deposit credita a carteira (criando-a se preciso) e registra no ledger.
// Idempotente por externalRef: repetir a mesma ref não credita de novo.
// É por aqui que chegam prêmios, estornos e saques do jogo.
func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	if walletID, err = lockWallet(ctx, tx, userID, true); err != nil {
		return "", 0, err
	}

	description := "deposit:" + externalRef
	if externalRef != "" {
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM wallet_ledger WHERE wallet_id=$1 AND operation_type='CREDIT' AND description=$2 LIMIT 1`,
			walletID, description).Scan(&exists)
		if err == nil {
			newBalance, err = walletBalance(ctx, tx, walletID)
			return walletID, newBalance, err // já creditado
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", 0, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
		amount, walletID); err != nil {
		return "", 0, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'CREDIT',$2,$3)`,
		walletID, amount, description); err != nil {
		return "", 0, err
	}

	if newBalance, err = walletBalance(ctx, tx, walletID); err != nil {
		return "", 0, err
	}
	return walletID, newBalance, tx.Commit()
}

// Reserve cria uma reserva PENDING e debita o saldo (bloqueio).
// Idempotente por (wallet_id, external_ref): a reserva existente é devolvida
// antes de qualquer checagem de saldo.
func (p *Postgres) Reserve(ctx context.Context, userID string, amount int64, externalRef string) (reservationID string, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	walletID, err := lockWallet(ctx, tx, userID, false)
	if err != nil {
		return "", err
	}

	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wallet_reservations WHERE wallet_id=$1 AND external_ref=$2`,
		walletID, externalRef).Scan(&reservationID)
	if err == nil {
		return reservationID, nil // já existe
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	balance, err := walletBalance(ctx, tx, walletID)
	if err != nil {
		return "", err
	}
	if balance < amount {
		return "", ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1 WHERE id=$2`,
		amount, walletID); err != nil {
		return "", err
	}

	reservationID = uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_reservations(id, wallet_id, external_ref, amount_cents, status) VALUES($1,$2,$3,$4,$5)`,
		reservationID, walletID, externalRef, amount, ReservationPending); err != nil {
		return "", err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'RESERVE',$2,$3)`,
		walletID, amount, "reserve:"+externalRef); err != nil {
		return "", err
	}

	return reservationID, tx.Commit()
}

// Commit efetiva uma reserva: o valor reservado sai definitivamente da carteira.
// Idempotente: reserva já encerrada não muda.
func (p *Postgres) Commit(ctx context.Context, userID, externalRef string) error {
	return p.closeReservation(ctx, userID, externalRef, ReservationCommitted)
}

// Refund desfaz uma reserva PENDING, devolvendo o saldo.
// Idempotente: reserva já encerrada não muda.
func (p *Postgres) Refund(ctx context.Context, userID, externalRef string) error {
	return p.closeReservation(ctx, userID, externalRef, ReservationRefunded)
}

func (p *Postgres) closeReservation(ctx context.Context, userID, externalRef, to string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		resID, walletID, status string
		amount                  int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT wr.id, wr.wallet_id, wr.amount_cents, wr.status
		FROM wallet_reservations wr
		JOIN wallets w ON w.id = wr.wallet_id
		WHERE w.user_id=$1 AND wr.external_ref=$2
		FOR UPDATE`, userID, externalRef).Scan(&resID, &walletID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != ReservationPending {
		return nil // já tratado
	}

	op, prefix := "DEBIT", "commit:"
	if to == ReservationRefunded {
		op, prefix = "REFUND", "refund:"
		if _, err = tx.ExecContext(ctx,
			`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`,
			amount, walletID); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallet_reservations SET status=$1 WHERE id=$2`, to, resID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,$2,$3,$4)`,
		walletID, op, amount, prefix+externalRef); err != nil {
		return err
	}

	return tx.Commit()
}

// lockWallet trava a linha da carteira do usuário (lock pessimista);
// com create=true, cria a carteira vazia quando não existe
func lockWallet(ctx context.Context, tx *sql.Tx, userID string, create bool) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if !create {
		return "", ErrNotFound
	}

	id = uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,0,1)
		 ON CONFLICT (user_id) DO NOTHING`, id, userID); err != nil {
		return "", err
	}
	// outra transação pode ter criado primeiro
	if err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func walletBalance(ctx context.Context, tx *sql.Tx, walletID string) (int64, error) {
	var bal int64
	err := tx.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE id=$1`, walletID).Scan(&bal)
	return bal, err
}
