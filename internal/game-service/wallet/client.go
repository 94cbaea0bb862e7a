package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	walletdto "github.com/radieske/gamble-game-poc/internal/game-service/wallet/dto"
)

var (
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrNotFound          = errors.New("wallet: not found")
	ErrAmountTooLarge    = errors.New("wallet: amount exceeds int64")
)

// MaxTransfer é o maior valor que a carteira aceita (centavos em int64)
const MaxTransfer uint64 = math.MaxInt64

// Client fala com o wallet-service. Toda operação é idempotente por external_ref.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(base, "/"),
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Reserve bloqueia amount na carteira do usuário
func (c *Client) Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (string, error) {
	cents, err := toCents(amount)
	if err != nil {
		return "", err
	}
	var out walletdto.ReserveResponse
	err = c.post(ctx, "/wallet/reserve", walletdto.ReserveRequest{UserID: userID, AmountCents: cents, ExternalRef: externalRef}, &out)
	return out.ReservationID, err
}

// Commit efetiva a reserva: o valor sai da carteira para o pool do jogo
func (c *Client) Commit(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/commit", walletdto.ReservationRef{UserID: userID, ExternalRef: externalRef}, nil)
}

// Refund devolve a reserva ao usuário
func (c *Client) Refund(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/refund", walletdto.ReservationRef{UserID: userID, ExternalRef: externalRef}, nil)
}

// Deposit credita a carteira; repetir a mesma ref não credita de novo
func (c *Client) Deposit(ctx context.Context, userID string, amount uint64, externalRef string) (int64, error) {
	cents, err := toCents(amount)
	if err != nil {
		return 0, err
	}
	var out walletdto.WalletResponse
	err = c.post(ctx, "/wallet/deposit", walletdto.DepositRequest{UserID: userID, AmountCents: cents, ExternalRef: externalRef}, &out)
	return out.BalanceCents, err
}

// Transfer implementa engine.Payer: prêmios, estornos e saques viram depósitos
func (c *Client) Transfer(ctx context.Context, to string, amount uint64, ref string) error {
	_, err := c.Deposit(ctx, to, amount, ref)
	return err
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("wallet %s: %w", path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusConflict:
		return ErrInsufficientFunds
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("wallet %s http %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func toCents(amount uint64) (int64, error) {
	if amount > MaxTransfer {
		return 0, ErrAmountTooLarge
	}
	return int64(amount), nil
}
