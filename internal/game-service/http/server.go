package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/gamble-game-poc/internal/game-service/dto"
	"github.com/radieske/gamble-game-poc/internal/game-service/engine"
	"github.com/radieske/gamble-game-poc/internal/game-service/wallet"
	"github.com/radieske/gamble-game-poc/pkg/contracts/events"
)

// Game é a superfície do engine exposta via HTTP
type Game interface {
	Owner() string
	Balance() uint64
	Config() engine.Config
	UnsettledBets() []engine.Bet
	AcceptBet(ctx context.Context, bettor string, amount uint64) (string, error)
	Fund(ctx context.Context, caller string, amount uint64) error
	Withdraw(ctx context.Context, caller string, amount uint64) error
	RefundAll(ctx context.Context, caller string) ([]engine.Bet, error)
	UpdateMinimumBet(ctx context.Context, caller string, value uint64) error
	UpdateHouseEdge(ctx context.Context, caller string, bps uint64) error
}

// Wallet recolhe os fundos do chamador antes de entrarem no pool
type Wallet interface {
	Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (string, error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

// Results guarda o desfecho de apostas já encerradas (cache Redis)
type Results interface {
	Get(ctx context.Context, requestID string) (events.GameEvent, bool, error)
}

// History lê as transições persistidas de uma aposta
type History interface {
	History(ctx context.Context, requestID string) ([]engine.Transition, error)
}

type Server struct {
	log       *zap.Logger
	validator *validator.Validate
	game      Game
	wallet    Wallet
	results   Results // opcional
	history   History // opcional
}

func NewServer(log *zap.Logger, game Game, w Wallet, results Results, history History) *Server {
	return &Server{
		log:       log,
		validator: validator.New(),
		game:      game,
		wallet:    w,
		results:   results,
		history:   history,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bets", s.placeBet)
		r.Get("/bets/unsettled", s.listUnsettled)
		r.Post("/bets/refund", s.refundAll)
		r.Get("/bets/{requestId}", s.getBet)

		r.Post("/treasury/fund", s.fund)
		r.Post("/treasury/withdraw", s.withdraw)
		r.Get("/treasury/balance", s.balance)

		r.Get("/config", s.getConfig)
		r.Put("/config/minimum-bet", s.updateMinimumBet)
		r.Put("/config/house-edge", s.updateHouseEdge)
	})
	return r
}

// placeBet reserva o valor na carteira do apostador, registra a aposta no
// engine e efetiva a reserva; se o engine recusar, a reserva é devolvida
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	log := s.reqLog(r).With(zap.String("bettor", req.UserID), zap.Uint64("amount", req.Amount))

	if cfg := s.game.Config(); req.Amount == 0 || req.Amount < cfg.MinimumBet {
		s.fail(w, r, engine.ErrBetTooSmall)
		return
	}

	ref := "bet:" + uuid.NewString()
	if _, err := s.wallet.Reserve(r.Context(), req.UserID, req.Amount, ref); err != nil {
		log.Warn("wallet reserve failed", zap.Error(err))
		s.fail(w, r, err)
		return
	}

	requestID, err := s.game.AcceptBet(r.Context(), req.UserID, req.Amount)
	if err != nil {
		s.release(log, req.UserID, ref)
		s.fail(w, r, err)
		return
	}

	if err := s.wallet.Commit(r.Context(), req.UserID, ref); err != nil {
		// valor já saiu da carteira na reserva; só o status ficou para trás
		log.Error("wallet commit failed", zap.String("ref", ref), zap.String("requestId", requestID), zap.Error(err))
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dto.PlaceBetResponse{RequestID: requestID, Status: string(engine.StatusPending), Amount: req.Amount})
}

func (s *Server) listUnsettled(w http.ResponseWriter, r *http.Request) {
	bets := s.game.UnsettledBets()
	out := dto.BetListResponse{Bets: make([]dto.BetView, 0, len(bets)), Count: len(bets)}
	for _, b := range bets {
		out.Bets = append(out.Bets, betView(b))
	}
	render.JSON(w, r, out)
}

// getBet procura a aposta no conjunto pendente, depois no cache de
// resultados e por fim no histórico persistido
func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestId")

	for _, b := range s.game.UnsettledBets() {
		if b.RequestID == id {
			render.JSON(w, r, betView(b))
			return
		}
	}

	if s.results != nil {
		ev, ok, err := s.results.Get(r.Context(), id)
		if err != nil {
			s.reqLog(r).Warn("bet result cache", zap.String("requestId", id), zap.Error(err))
		} else if ok {
			render.JSON(w, r, eventView(ev))
			return
		}
	}

	if s.history != nil {
		trs, err := s.history.History(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if len(trs) > 0 {
			render.JSON(w, r, transitionView(trs))
			return
		}
	}

	s.respondError(w, r, http.StatusNotFound, "bet not found")
}

func (s *Server) refundAll(w http.ResponseWriter, r *http.Request) {
	var req dto.OperatorRequest
	if !s.decode(w, r, &req) {
		return
	}
	refunded, err := s.game.RefundAll(r.Context(), req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := dto.BetListResponse{Bets: make([]dto.BetView, 0, len(refunded)), Count: len(refunded)}
	for _, b := range refunded {
		out.Bets = append(out.Bets, betView(b))
	}
	render.JSON(w, r, out)
}

// fund recolhe o valor da carteira do operador e credita o pool
func (s *Server) fund(w http.ResponseWriter, r *http.Request) {
	var req dto.TreasuryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID != s.game.Owner() {
		s.fail(w, r, engine.ErrPermissionDenied)
		return
	}
	if req.Amount == 0 {
		s.fail(w, r, engine.ErrInvalidAmount)
		return
	}
	log := s.reqLog(r).With(zap.Uint64("amount", req.Amount))

	ref := "fund:" + uuid.NewString()
	if _, err := s.wallet.Reserve(r.Context(), req.UserID, req.Amount, ref); err != nil {
		log.Warn("wallet reserve failed", zap.Error(err))
		s.fail(w, r, err)
		return
	}
	if err := s.game.Fund(r.Context(), req.UserID, req.Amount); err != nil {
		s.release(log, req.UserID, ref)
		s.fail(w, r, err)
		return
	}
	if err := s.wallet.Commit(r.Context(), req.UserID, ref); err != nil {
		log.Error("wallet commit failed", zap.String("ref", ref), zap.Error(err))
	}

	render.JSON(w, r, s.balanceView())
}

// withdraw paga o operador pela carteira (engine.Payer)
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.TreasuryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.game.Withdraw(r.Context(), req.UserID, req.Amount); err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, s.balanceView())
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.balanceView())
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.configView())
}

func (s *Server) updateMinimumBet(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfigValueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.game.UpdateMinimumBet(r.Context(), req.UserID, *req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, s.configView())
}

func (s *Server) updateHouseEdge(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfigValueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.game.UpdateHouseEdge(r.Context(), req.UserID, *req.Value); err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, s.configView())
}

func (s *Server) balanceView() dto.BalanceResponse {
	return dto.BalanceResponse{Balance: s.game.Balance(), Pending: len(s.game.UnsettledBets())}
}

func (s *Server) configView() dto.ConfigResponse {
	cfg := s.game.Config()
	return dto.ConfigResponse{Owner: s.game.Owner(), MinimumBet: cfg.MinimumBet, HouseEdgeBps: cfg.HouseEdgeBps}
}

// release devolve uma reserva quando o engine recusa a operação.
// Usa contexto próprio: a requisição pode já ter sido cancelada.
func (s *Server) release(log *zap.Logger, userID, ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.wallet.Refund(ctx, userID, ref); err != nil {
		log.Error("wallet refund failed", zap.String("ref", ref), zap.Error(err))
	}
}

// decode lê e valida o corpo; responde 400 e retorna false em caso de erro
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to decode request body")
		return false
	}
	if err := s.validator.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			s.respondError(w, r, http.StatusBadRequest, "field "+verrs[0].Field()+" is "+verrs[0].Tag())
			return false
		}
		s.respondError(w, r, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// fail traduz erros do engine e da carteira em status HTTP
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.reqLog(r).Error("request failed", zap.Error(err))
		s.respondError(w, r, status, "internal error")
		return
	}
	s.respondError(w, r, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrBetTooSmall),
		errors.Is(err, engine.ErrBetTooLarge),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidBettor),
		errors.Is(err, engine.ErrInvalidHouseEdge),
		errors.Is(err, engine.ErrTransferTooLarge),
		errors.Is(err, wallet.ErrAmountTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrSettlementInProgress),
		errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, dto.ErrorResponse{Status: status, Error: msg})
}

func (s *Server) reqLog(r *http.Request) *zap.Logger {
	return s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
}
