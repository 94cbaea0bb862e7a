package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/wallet-service/dto"
	"github.com/radieske/gamble-game-poc/internal/wallet-service/repo"
)

// Repo define a interface de operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error)
	Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error)
	Reserve(ctx context.Context, userID string, amount int64, externalRef string) (reservationID string, err error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log  *zap.Logger
	repo Repo
}

// NewServer instancia o servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.getWallet)        // ?userId=...
	mux.HandleFunc("POST /wallet/deposit", s.deposit) // idempotente por external_ref
	mux.HandleFunc("POST /wallet/reserve", s.reserve)
	mux.HandleFunc("POST /wallet/commit", s.commit)
	mux.HandleFunc("POST /wallet/refund", s.refund)
	return mux
}

// getWallet retorna (ou cria) a carteira e saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		s.fail(w, "get wallet", err)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: userID, WalletID: walletID, BalanceCents: bal})
}

// deposit adiciona saldo à carteira do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.repo.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.fail(w, "deposit", err)
		return
	}
	s.log.Info("wallet credited",
		zap.String("userId", req.UserID), zap.Int64("amount_cents", req.AmountCents), zap.String("ref", req.ExternalRef))
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, BalanceCents: bal})
}

// reserve cria uma reserva de saldo (bloqueio) para o usuário
func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	resID, err := s.repo.Reserve(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		s.fail(w, "reserve", err)
		return
	}
	writeJSON(w, dto.ReservationResponse{ReservationID: resID, Status: repo.ReservationPending})
}

// commit efetiva uma reserva de saldo
func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	s.closeReservation(w, r, "commit", s.repo.Commit, repo.ReservationCommitted)
}

// refund desfaz uma reserva de saldo, devolvendo o valor ao usuário
func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	s.closeReservation(w, r, "refund", s.repo.Refund, repo.ReservationRefunded)
}

func (s *Server) closeReservation(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, userID, externalRef string) error, status string) {
	var req dto.ReservationRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := fn(r.Context(), req.UserID, req.ExternalRef); err != nil {
		s.fail(w, op, err)
		return
	}
	writeJSON(w, dto.StatusResponse{Status: status})
}

// fail traduz erros do repositório em status HTTP
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "wallet not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("wallet "+op, zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
