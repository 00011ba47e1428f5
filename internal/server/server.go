package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"bingxTerminal/internal/analysis"
	"bingxTerminal/internal/app"
	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

// Server exposes the session over a JSON HTTP API plus a WebSocket stream of
// state snapshots. It is pure presentation: every endpoint maps onto a session
// command or a read-only snapshot, nothing here mutates order state directly.
type Server struct {
	logger   ports.Logger
	session  *app.Session
	advisor  ports.StrategyAdvisor
	upgrader websocket.Upgrader
}

// Config holds the dependencies of the HTTP server.
type Config struct {
	Logger  ports.Logger
	Session *app.Session
	Advisor ports.StrategyAdvisor
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Session == nil || cfg.Advisor == nil {
		return nil, fmt.Errorf("missing required dependencies for server")
	}
	return &Server{
		logger:  cfg.Logger,
		session: cfg.Session,
		advisor: cfg.Advisor,
		upgrader: websocket.Upgrader{
			// The dashboard is served from arbitrary dev origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/symbol", s.handleSelectSymbol)
		r.Post("/orders", s.handleStartOrder)
		r.Delete("/orders/active", s.handleCancelOrder)
		r.Post("/balance/refresh", s.handleRefreshBalance)
		r.Post("/advisor/critique", s.handleCritique)
		r.Post("/advisor/suggest", s.handleSuggest)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(context.Background(), err, "failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type selectSymbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleSelectSymbol(w http.ResponseWriter, r *http.Request) {
	var req selectSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.SelectSymbol(r.Context(), req.Symbol); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot())
}

type startOrderRequest struct {
	domain.TradeConfig
	Credentials ports.Credentials `json:"credentials"`
}

func validateTradeConfig(cfg domain.TradeConfig) error {
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol must be set")
	}
	if !cfg.Side.IsValid() {
		return fmt.Errorf("side must be LONG or SHORT")
	}
	if cfg.EntryPrice <= 0 {
		return fmt.Errorf("entryPrice must be positive")
	}
	if cfg.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive")
	}
	if cfg.AmountUSDT <= 0 {
		return fmt.Errorf("amountUSDT must be positive")
	}
	if cfg.TPPercent < 0 || cfg.SLPercent < 0 {
		return fmt.Errorf("tpPercent and slPercent must not be negative")
	}
	return nil
}

func (s *Server) handleStartOrder(w http.ResponseWriter, r *http.Request) {
	var req startOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateTradeConfig(req.TradeConfig); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := s.session.StartOrder(r.Context(), req.TradeConfig, req.Credentials)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrOrderActive):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ports.ErrStaleOrder):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.session.CancelOrder(r.Context())
	if err != nil {
		if errors.Is(err, ports.ErrNoActiveOrder) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleRefreshBalance(w http.ResponseWriter, r *http.Request) {
	var creds ports.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance := s.session.RefreshBalance(r.Context(), creds)
	if balance == nil {
		s.writeJSON(w, http.StatusOK, s.session.Snapshot())
		return
	}
	s.writeJSON(w, http.StatusOK, balance)
}

type critiqueRequest struct {
	domain.TradeConfig
}

type critiqueResponse struct {
	Analysis string `json:"analysis"`
}

func (s *Server) handleCritique(w http.ResponseWriter, r *http.Request) {
	var req critiqueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap := s.session.Snapshot()
	analysisText := s.advisor.Critique(r.Context(), req.TradeConfig, snap.CurrentPrice)
	s.writeJSON(w, http.StatusOK, critiqueResponse{Analysis: analysisText})
}

type suggestRequest struct {
	Observation string `json:"observation"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	observation := req.Observation
	if observation == "" {
		// Default to an indicator-based description of the current window.
		snap := s.session.Snapshot()
		observation = analysis.DescribeMarket(&domain.MarketSnapshot{
			Symbol:      snap.Symbol,
			Candles:     snap.Candles,
			LatestPrice: snap.CurrentPrice,
			Synthetic:   snap.SyntheticFeed,
		})
	}

	suggestion, err := s.advisor.Suggest(r.Context(), observation)
	if err != nil || suggestion == nil {
		s.writeError(w, http.StatusServiceUnavailable, ports.ErrAdvisorUnavailable.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, suggestion)
}

// handleWebSocket streams session snapshots to the dashboard. The client gets
// the current state immediately and then one message per state change,
// last-value-wins under backpressure.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	// Reader goroutine: we never expect client messages, but reading is the
	// only way to observe the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.session.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case snap := <-snapshots:
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
