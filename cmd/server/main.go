package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go purgeExpiredSessions(ctx, store, cfg.PurgeInterval)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewRPCMetrics(cfg.MetricsNamespace, registry)

	tokens := session.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)
	splitSvc := service.NewSplitService(store, tokens, cfg.Currency)

	mux := http.NewServeMux()

	// Register Connect services; metrics sees auth failures, logging sees the session
	splitPath, splitHandler := apiconnect.NewSplitServiceHandler(splitSvc,
		connect.WithInterceptors(
			metrics.Interceptor(),
			middleware.RequireSession(tokens, apiconnect.PublicProcedures...),
			middleware.LoggingInterceptor(),
		),
		connect.WithRecover(recoverPanic),
	)
	mux.Handle(splitPath, splitHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(cfg.CORSAllowedOrigins, mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Connect server starting",
		"address", server.Addr,
		"env", cfg.AppEnv,
		"currency", cfg.Currency,
		"session_ttl", cfg.SessionTTL,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// recoverPanic turns handler panics into internal errors. A
// ReconciliationError means the allocator produced totals that do not add
// up to the grand total.
func recoverPanic(ctx context.Context, spec connect.Spec, _ http.Header, p any) error {
	var recon *calculator.ReconciliationError
	if err, ok := p.(error); ok && errors.As(err, &recon) {
		slog.Error("Allocation did not reconcile",
			"procedure", spec.Procedure,
			"grand_total", recon.GrandTotal,
			"allocated", recon.Allocated,
			"session_id", middleware.GetSessionID(ctx),
		)
	} else {
		slog.Error("Handler panic", "procedure", spec.Procedure, "panic", p)
	}
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

// purgeExpiredSessions deletes expired sessions until ctx is done.
func purgeExpiredSessions(ctx context.Context, store storage.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpiredSessions(ctx, now)
			if err != nil {
				slog.Warn("Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired sessions", "count", n)
			}
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	wildcard := slices.Contains(allowed, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, Split-Share-Item, Split-Share-Discrepancy")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
