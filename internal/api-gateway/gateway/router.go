package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Targets são os serviços atrás do gateway
type Targets struct {
	GameURL   string
	WalletURL string
}

func rp(log *zap.Logger, name, to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s url %q", name, to)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream unavailable", zap.String("upstream", name), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, name+" unavailable", http.StatusBadGateway)
	}
	return p, nil
}

// Router monta as rotas públicas:
// /api/game/* -> game-service, /api/wallet/* -> wallet-service, /ws -> relay de eventos
func Router(log *zap.Logger, t Targets, ws http.HandlerFunc) (http.Handler, error) {
	game, err := rp(log, "game-service", t.GameURL)
	if err != nil {
		return nil, err
	}
	wallet, err := rp(log, "wallet-service", t.WalletURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Mount("/api/game", http.StripPrefix("/api/game", game))
	r.Mount("/api/wallet", http.StripPrefix("/api/wallet", wallet))
	if ws != nil {
		r.Get("/ws", ws)
	}
	return r, nil
}
