// Package httpapi serves the read-only inspection surface: the live slot
// state for operators, Prometheus metrics and a liveness probe.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bn-ladder-bot/internal/state"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// ordersResponse mirrors the in-memory stores; the JSON field names follow
// the store tags so a dump can be diffed against the journal.
type ordersResponse struct {
	Asset     state.AssetState     `json:"asset"`
	Orderbook state.OrderbookState `json:"orderbook"`
	Orders    state.OrdersState    `json:"orders"`
}

type Server struct {
	bind    string
	metrics http.Handler
	log     *zap.Logger
}

// New wires the API on the given bind address. metricsHandler may be nil
// when metrics are disabled; the route then answers 404.
func New(bind string, metricsHandler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{bind: bind, metrics: metricsHandler, log: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.handleOrders)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.bind,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", zap.String("bind", s.bind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := ordersResponse{
		Asset:     state.AssetSnapshot(),
		Orderbook: state.OrderbookSnapshot(),
		Orders:    state.OrdersSnapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("orders response encode failed", zap.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
