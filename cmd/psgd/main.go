// Command psgd is the PSG Gateway server daemon: it wires C1–C7 together
// from internal/config.Get() and serves the HTTP/2 front-end until an
// interrupt or the parent process asks it to shut down.
//
// Grounded on the teacher's cmd/server/main.go (config-then-dependency-
// then-server construction order, signal.NotifyContext shutdown).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocx/backend/internal/auxstore"
	"github.com/ocx/backend/internal/cache"
	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/circuitbreaker"
	"github.com/ocx/backend/internal/config"
	"github.com/ocx/backend/internal/monitoring"
	"github.com/ocx/backend/internal/processor"
	"github.com/ocx/backend/internal/resolve"
	"github.com/ocx/backend/internal/server"
)

var daemonLog = log.New(os.Stdout, "[psgd] ", log.LstdFlags|log.Lmicroseconds)

func main() {
	cfg := config.Get()
	breakers := circuitbreaker.NewPSGCircuitBreakers()

	c, err := cache.OpenBoltCache(cfg.Cache.DBPath, cfg.Cache.LockTimeout(), cfg.Cache.OpTimeout())
	if err != nil {
		daemonLog.Fatalf("opening cache at %s: %v", cfg.Cache.DBPath, err)
	}

	session, err := cassfetch.NewSession(cfg.Cassandra)
	if err != nil {
		daemonLog.Fatalf("connecting to Cassandra: %v", err)
	}
	session.Pool = cassfetch.NewFetchPool(cfg.Processor.WorkerPoolSize)

	src := resolve.NewCassandraSource(session)
	src.Breaker = breakers.Cassandra
	engine := resolve.New(c, src)

	if cfg.AuxStore.Enabled {
		auxClient, err := auxstore.Dial(cfg.AuxStore.Addr)
		if err != nil {
			daemonLog.Fatalf("connecting to auxiliary store at %s: %v", cfg.AuxStore.Addr, err)
		}
		defer auxClient.Close()
		auxClient.Breaker = breakers.AuxStore
		engine.WithAuxStore(resolve.AuxStoreClient{Client: auxClient})
	}

	metrics := monitoring.NewMonitoringSystem()
	reg := processor.NewRegistry(processor.Deps{Resolve: engine, Session: session, Metrics: metrics})
	srv := server.New(cfg.Server, reg, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemonLog.Printf("starting psgd, env=%s", cfg.Server.Env)
	if err := srv.Start(ctx); err != nil {
		daemonLog.Fatalf("server exited with error: %v", err)
	}
	daemonLog.Printf("psgd shut down cleanly")
}
