package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/buildinfo"
	"github.com/xelth-com/eckreport/internal/config"
	"github.com/xelth-com/eckreport/internal/handlers"
	"github.com/xelth-com/eckreport/internal/logger"
	"github.com/xelth-com/eckreport/internal/services/report"
	"github.com/xelth-com/eckreport/internal/services/visit"
	"github.com/xelth-com/eckreport/internal/session"
	"github.com/xelth-com/eckreport/internal/utils"
	"github.com/xelth-com/eckreport/web"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Logger
	zlog, err := logger.New(cfg.NodeEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	info := buildinfo.Fields()
	zlog.Info("🚀 Starting visit report service",
		zap.String("version", handlers.Version),
		zap.String("env", cfg.NodeEnv),
		zap.String("commit", info["commitHash"]),
		zap.String("built", info["buildTime"]))
	if cfg.PublicURL == "" {
		cfg.PublicURL = utils.FormURL(cfg.Port)
	}
	if cfg.Session.SecretGenerated {
		zlog.Warn("⚠️ SESSION_SECRET not set, using a random secret; sessions end on restart")
	}

	// 3. Report compiler resolves the TrueType font once
	compiler := report.NewCompiler(report.Options{FontPath: cfg.Report.FontPath}, zlog)

	// 4. Session store with background expiry
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store := session.NewStore(cfg.Session.TTL, zlog)
	go store.RunJanitor(ctx, cfg.Session.SweepInterval)

	visits := visit.NewService(compiler, zlog)

	// 5. Set up HTTP router
	assets, err := web.GetFileSystem()
	if err != nil {
		zlog.Fatal("Failed to open web assets", zap.Error(err))
	}
	router, err := handlers.NewRouter(cfg, store, visits, assets, zlog)
	if err != nil {
		zlog.Fatal("Failed to build router", zap.Error(err))
	}

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("🌐 Server listening", zap.String("port", cfg.Port), zap.String("public_url", cfg.PublicURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zlog.Warn("⚠️ Shutting down gracefully", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}
	stop()

	zlog.Info("✅ Shutdown complete", zap.Int("sessions_dropped", store.Len()))
}
