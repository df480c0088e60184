package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xrplquantum/dex-engine/internal/amm"
	"github.com/xrplquantum/dex-engine/internal/api"
	"github.com/xrplquantum/dex-engine/internal/book"
	"github.com/xrplquantum/dex-engine/internal/metrics"
	"github.com/xrplquantum/dex-engine/internal/proposal"
	"github.com/xrplquantum/dex-engine/internal/store"
	"github.com/xrplquantum/dex-engine/internal/swap"
	"github.com/xrplquantum/dex-engine/internal/xrpl"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	rpcURL := os.Getenv("XRPL_RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://s1.ripple.com:51234"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Ledger client ---
	ledger := xrpl.NewClient(rpcURL, 15*time.Second)
	slog.Info("ledger endpoint configured", "url", rpcURL)

	// --- Market data services ---
	oracleRate := decimal.NewFromFloat(0.35) // quote asset to USD
	if v := os.Getenv("XRP_USD_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			slog.Error("invalid XRP_USD_RATE", "err", err)
			os.Exit(1)
		}
		oracleRate = rate
	}

	bookDepth := 0
	if v := os.Getenv("BOOK_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid BOOK_DEPTH", "err", err)
			os.Exit(1)
		}
		bookDepth = n
	}

	books := book.NewService(ledger, bookDepth)
	pools := amm.NewPoolService(ledger, oracleRate)
	history := amm.NewHistoryBuilder(ledger)
	planner := swap.NewPlanner(ledger)

	// --- Transaction proposals ---
	var proposals proposal.Service
	if url := os.Getenv("SIGNING_SERVICE_URL"); url != "" {
		proposals = proposal.NewHTTPService(url,
			os.Getenv("SIGNING_SERVICE_KEY"),
			os.Getenv("SIGNING_SERVICE_SECRET"),
			15*time.Second)
		slog.Info("signing service configured", "url", url)
	} else {
		slog.Warn("SIGNING_SERVICE_URL not set, recording proposals in memory")
		proposals = proposal.NewMemoryService()
	}

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- API service ---
	apiSvc := api.NewService(st, books, pools, history, planner, proposals, ledger, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"dex-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time market data.
		r.Get("/ws", wsHub.HandleWS)

		apiSvc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // TVL history rebuilds can run long
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("dex-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down dex-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("dex-engine stopped")
}
