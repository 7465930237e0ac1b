package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/ratebook/pkg/book"
	"github.com/uhyunpark/ratebook/pkg/order"
	"github.com/uhyunpark/ratebook/pkg/pricefeed"
	"github.com/uhyunpark/ratebook/pkg/rate"
)

// RateService answers rate lookups and pair discovery.
type RateService interface {
	Quote(ctx context.Context, from, to string, amount any) (rate.LookupResult, error)
	TradableRates(ctx context.Context) ([]rate.PairRate, error)
}

// OrderBook creates and lists orders.
type OrderBook interface {
	CreateOrder(ctx context.Context, req book.CreateRequest) (order.Order, error)
	ListOrders(page int) (book.Page, error)
}

type Config struct {
	Addr        string
	CORSOrigins []string
	RateLimit   int           // requests per RateWindow per client IP
	RateWindow  time.Duration
	OrderLog    string // JSON-lines file of created orders; empty disables it
}

// Server handles REST API and WebSocket connections
type Server struct {
	rates  RateService
	orders OrderBook
	router *mux.Router
	hub    *Hub
	cfg    Config
	logger *zap.SugaredLogger

	logMu    sync.Mutex
	orderLog *os.File
}

// NewServer creates a new API server. hub is shared with the services that
// push to it and must be running (see Hub.Run) before clients connect.
func NewServer(cfg Config, rates RateService, orders OrderBook, hub *Hub, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		rates:  rates,
		orders: orders,
		router: mux.NewRouter(),
		hub:    hub,
		cfg:    cfg,
		logger: logger,
	}

	if cfg.OrderLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OrderLog), 0755); err != nil {
			logger.Warnw("order_log_unavailable", "path", cfg.OrderLog, "err", err)
		} else if f, err := os.OpenFile(cfg.OrderLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
			// continue without the order log
			logger.Warnw("order_log_unavailable", "path", cfg.OrderLog, "err", err)
		} else {
			s.orderLog = f
			logger.Infow("order_log_opened", "path", cfg.OrderLog)
		}
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{page}", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")

	// Rate endpoints
	api.HandleFunc("/rate/{from}/{to}", s.handleGetRate).Methods("GET")
	api.HandleFunc("/rate/{from}/{to}/{amount}", s.handleGetRate).Methods("GET")
	api.HandleFunc("/pairs", s.handleGetPairs).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS and, when configured, the
// per-client rate limit.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	var h http.Handler = s.router
	if s.cfg.RateLimit > 0 && s.cfg.RateWindow > 0 {
		h = newClientLimiter(s.cfg.RateLimit, s.cfg.RateWindow).middleware(h)
	}
	return c.Handler(h)
}

// Run serves HTTP on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the order log.
func (s *Server) Close() error {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.orderLog == nil {
		return nil
	}
	err := s.orderLog.Close()
	s.orderLog = nil
	return err
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw, ok := mux.Vars(r)["page"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid page", "page must be a positive integer")
			return
		}
		page = n
	}

	res, err := s.orders.ListOrders(page)
	if err != nil {
		if errors.Is(err, book.ErrInvalidPage) {
			respondError(w, http.StatusBadRequest, "invalid page", err.Error())
			return
		}
		s.logger.Errorw("list_orders_failed", "page", page, "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	respondJSON(w, res)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req book.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	o, err := s.orders.CreateOrder(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, book.ErrInvalidOrder), errors.Is(err, pricefeed.ErrUnsupportedSymbol):
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	case errors.Is(err, pricefeed.ErrPriceFetch):
		respondError(w, http.StatusBadGateway, "price unavailable", err.Error())
		return
	default:
		s.logger.Errorw("create_order_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	s.logOrder(o)
	respondJSONStatus(w, http.StatusCreated, o)
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	// a missing amount defaults to 1
	var amount any
	if raw, ok := vars["amount"]; ok {
		amount = raw
	}

	res, err := s.rates.Quote(r.Context(), vars["from"], vars["to"], amount)
	switch {
	case err == nil:
	case errors.Is(err, rate.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	default:
		s.logger.Errorw("rate_lookup_failed", "from", vars["from"], "to", vars["to"], "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	if !res.Found() {
		respondJSONStatus(w, http.StatusNotFound, res)
		return
	}
	respondJSON(w, res)
}

func (s *Server) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	rates, err := s.rates.TradableRates(r.Context())
	switch {
	case err == nil:
		respondJSON(w, PairsResponse{Rates: rates})
	case errors.Is(err, rate.ErrNoTradablePairs):
		respondJSON(w, PairsResponse{Rates: []rate.PairRate{}, Message: rate.EmptyBookMessage})
	default:
		s.logger.Errorw("pair_discovery_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{Status: "ok", Clients: s.hub.ClientCount()})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// logOrder appends a created order to the order log, one JSON object per line
func (s *Server) logOrder(o order.Order) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.orderLog == nil {
		return
	}

	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"event":     "ORDER_CREATED",
		"data":      o,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warnw("order_log_marshal_failed", "id", o.ID, "err", err)
		return
	}
	line = append(line, '\n')
	if _, err := s.orderLog.Write(line); err != nil {
		s.logger.Warnw("order_log_write_failed", "id", o.ID, "err", err)
	}
}
