// Package server implements the HTTP/2 Front-End (spec.md §4.7, C7):
// request routing, per-stream processor binding, and flow-controlled
// chunk flushing.
//
// Grounded on the teacher's internal/api/server.go (mux.NewRouter, CORS
// middleware closure, Start(port) error shape), generalized from its
// fixed REST/JSON endpoint table to PSG's five ID endpoints plus an
// /ADMIN surface, and using golang.org/x/net/http2's h2c handler for the
// clear-text HTTP/2 front-end the spec's "libuv + nghttp2" describes.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ocx/backend/internal/config"
	"github.com/ocx/backend/internal/middleware"
	"github.com/ocx/backend/internal/monitoring"
	"github.com/ocx/backend/internal/processor"
)

var serverLog = log.New(os.Stdout, "[psg:server] ", log.LstdFlags|log.Lmicroseconds)

// Server is the PSG HTTP/2 front-end: one http.Server fronted by an
// h2c-wrapped gorilla/mux router in development/test, native TLS ALPN
// in production.
type Server struct {
	cfg         config.ServerConfig
	registry    *processor.Registry
	hub         *StreamHub
	rateLimiter *middleware.RateLimiter
	metrics     *monitoring.MonitoringSystem

	httpSrv *http.Server
}

// New builds a Server wired to reg for processor creation. metrics may be
// nil, in which case the server allocates its own (the common case is a
// caller building one MonitoringSystem up front and feeding it to both
// processor.Deps and New so round trips and request counters land in the
// same snapshot).
func New(cfg config.ServerConfig, reg *processor.Registry, metrics *monitoring.MonitoringSystem) *Server {
	if metrics == nil {
		metrics = monitoring.NewMonitoringSystem()
	}
	return &Server{
		cfg:      cfg,
		registry: reg,
		hub:      NewStreamHub(),
		rateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			MaxCallsPerMinute: cfg.MaxCallsPerMinute,
		}),
		metrics: metrics,
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(s.rateLimiter.Middleware)

	r.HandleFunc("/ID/resolve", s.handleResolve).Methods("GET")
	r.HandleFunc("/ID/get", s.handleGetBySeqID).Methods("GET")
	r.HandleFunc("/ID/getblob", s.handleGetBlob).Methods("GET")
	r.HandleFunc("/ID/get_tse_chunk", s.handleTSEChunk).Methods("GET")
	r.HandleFunc("/ID/get_na", s.handleNamedAnnot).Methods("GET")

	r.HandleFunc("/ADMIN/healthz", s.handleHealthz).Methods("GET")
	r.Handle("/ADMIN/metrics", metricsHandler()).Methods("GET")
	r.HandleFunc("/ADMIN/live", s.handleLiveMetrics).Methods("GET")
	r.HandleFunc("/ADMIN/stream", s.hub.ServeWS)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs the server until ctx is cancelled. It serves clear-text
// HTTP/2 via h2c when no TLS cert is configured (the common test/dev
// path), and native TLS ALPN HTTP/2 otherwise.
func (s *Server) Start(ctx context.Context) error {
	h2s := &http2.Server{}
	handler := h2c.NewHandler(s.router(), h2s)

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSec) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			serverLog.Printf("shutdown error: %v", err)
		}
	}()

	serverLog.Printf("listening on %s (tls=%v)", s.cfg.ListenAddr, s.cfg.TLSCertFile != "")

	var err error
	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		err = s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		err = s.httpSrv.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, msg)
}
