package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
	"github.com/mr1hm/go-trial-monitor/internal/api"
	"github.com/mr1hm/go-trial-monitor/internal/config"
	"github.com/mr1hm/go-trial-monitor/internal/evaluator"
	internalgrpc "github.com/mr1hm/go-trial-monitor/internal/grpc"
	"github.com/mr1hm/go-trial-monitor/internal/logging"
	"github.com/mr1hm/go-trial-monitor/internal/monitor"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
	"github.com/mr1hm/go-trial-monitor/internal/seed"
	"github.com/mr1hm/go-trial-monitor/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			logging.Fatalf("Failed to create data directory: %v", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DB.SeedDemo {
		if err := seed.Run(ctx, db, time.Now(), rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))); err != nil {
			logging.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	var repo repository.Repository = db
	if cfg.Mock.Latency > 0 || cfg.Mock.FailureRate > 0 {
		slog.Info("simulating slow data source", "latency", cfg.Mock.Latency, "failure_rate", cfg.Mock.FailureRate)
		repo = repository.NewLatencyRepo(db, cfg.Mock.Latency, cfg.Mock.FailureRate)
	}

	policy := analytics.DefaultPolicy()
	if cfg.Evaluator.PolicyFile != "" {
		if policy, err = config.LoadPolicy(cfg.Evaluator.PolicyFile); err != nil {
			logging.Fatalf("Failed to load risk policy: %v", err)
		}
	}

	// Create broadcaster for gRPC streaming
	broadcaster := internalgrpc.NewBroadcaster()

	svc := monitor.NewService(repo, policy,
		monitor.WithPublisher(broadcaster),
		monitor.WithLocation(time.Local),
	)

	if cfg.Evaluator.PolicyFile != "" {
		go func() {
			err := config.WatchPolicy(ctx, cfg.Evaluator.PolicyFile, func(p analytics.Policy) {
				if err := svc.SetPolicy(p); err != nil {
					slog.Error("rejected risk policy", "error", err)
				}
			})
			if err != nil {
				slog.Error("policy watcher stopped", "error", err)
			}
		}()
	}

	sessions, err := session.NewStore(seed.DemoUsers(), cfg.Session.TTL, bcrypt.DefaultCost)
	if err != nil {
		logging.Fatalf("Failed to initialize sessions: %v", err)
	}

	// Start evaluator
	mgr := evaluator.NewManager(cfg, svc)
	mgr.Start(ctx)

	// Start gRPC server
	grpcServer := internalgrpc.NewServer(svc, broadcaster)
	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: false,
	}))
	router.Use(api.MetricsMiddleware())
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(svc, sessions)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // Close all streams gracefully
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
