package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ticket-ledger/config"
	"ticket-ledger/internal/archive"
	"ticket-ledger/internal/handlers"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/notify"
	"ticket-ledger/internal/services"
	"ticket-ledger/monitoring"
	"ticket-ledger/security"
	"ticket-ledger/utils"

	_ "ticket-ledger/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Bare invocation serves on the configured port
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve", "--http=0.0.0.0:"+cfg.Port)
	}

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})

	app.RootCmd.AddCommand(newAuditCommand(app, cfg), newHashTokenCommand())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		archiveStore, redisClient, err := openArchive(ctx, app, cfg)
		if err != nil {
			return err
		}
		if redisClient == nil && cfg.UsesRedis() {
			redisClient, err = utils.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				slog.Warn("redis unavailable, rate limiting disabled", "error", err)
				redisClient = nil
			}
		}
		if redisClient != nil {
			app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
				redisClient.Close()
				return te.Next()
			})
		}

		l := ledger.New(ledger.Config{
			Difficulty: cfg.Difficulty,
			Workers:    cfg.MiningWorkers,
			MaxNonce:   cfg.MaxNonce,
		})
		slog.Info("ledger created", "chainID", l.ChainID(), "difficulty", l.Difficulty())

		var publisher notify.Publisher = notify.Nop{}
		if cfg.PubNubPublishKey != "" {
			publisher = notify.NewPubNubPublisher(notify.Config{
				PublishKey:   cfg.PubNubPublishKey,
				SubscribeKey: cfg.PubNubSubscribeKey,
				SecretKey:    cfg.PubNubSecretKey,
				UserID:       cfg.PubNubUserID,
			})
		}

		monitor := monitoring.NewMonitor(l)
		ledgerService := services.NewLedgerService(l, services.Options{
			Archive: archiveStore,
			Breaker: utils.NewCircuitBreakerWithSettings("archive", utils.BreakerSettings{
				MaxRequests:  uint32(cfg.BreakerMaxRequests),
				Timeout:      cfg.BreakerTimeout,
				FailureRatio: cfg.BreakerFailureRatio,
			}),
			Publisher:         publisher,
			Monitor:           monitor,
			MineOnWrite:       cfg.AutoMineInterval <= 0,
			MineTimeout:       cfg.MineTimeout,
			MaxBookingTickets: cfg.BookingMaxTickets,
		})

		if err := ledgerService.SyncArchive(ctx); err != nil {
			slog.Warn("initial archive sync failed", "error", err)
		}

		// Start background tasks
		go monitor.Run(ctx)
		if cfg.AutoMineInterval > 0 {
			go ledgerService.RunAutoMiner(ctx, cfg.AutoMineInterval)
		}
		if cfg.EnableMetrics {
			go serveMetrics(cfg.MetricsPort)
		}

		registerRoutes(se, cfg, ledgerService, redisClient)
		slog.Info("Server routes registered")

		return se.Next()
	})

	return app.Start()
}

func registerRoutes(se *core.ServeEvent, cfg *config.Config, ledgerService *services.LedgerService, redisClient *redis.Client) {
	ticketHandler := handlers.NewTicketHandler(ledgerService)
	adminHandler := handlers.NewAdminHandler(ledgerService)

	api := se.Router.Group("/api/v1")
	if redisClient != nil && cfg.RateLimitPerMinute > 0 {
		api.BindFunc(security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute).Limit)
	}

	// Catalog and ticket endpoints
	api.GET("/events", ticketHandler.ListEvents)
	api.POST("/bookings", ticketHandler.BookTickets)
	api.POST("/tickets", ticketHandler.IssueTicket)
	api.GET("/tickets/{ticketId}", ticketHandler.GetTicket)
	api.POST("/tickets/{ticketId}/transfer", ticketHandler.TransferTicket)
	api.POST("/tickets/{ticketId}/redeem", ticketHandler.RedeemTicket)

	// Chain explorer
	api.GET("/blocks", ticketHandler.ListBlocks)
	api.GET("/blocks/{index}", ticketHandler.GetBlock)

	// Admin endpoints
	admin := api.Group("/admin")
	if cfg.AdminTokenHash != "" || !cfg.IsDevelopment() {
		admin.BindFunc(security.NewAdminGuard(cfg.AdminTokenHash).Require)
	} else {
		slog.Warn("admin routes are open, set ADMIN_TOKEN_HASH to protect them")
	}
	admin.POST("/mine", adminHandler.Mine)
	admin.GET("/chain/verify", adminHandler.VerifyChain)
	admin.GET("/pending", adminHandler.GetPending)
	admin.GET("/stats", adminHandler.GetStats)
	admin.GET("/archive/chains", adminHandler.ListArchivedChains)
	admin.GET("/archive/chains/{chainId}/audit", adminHandler.AuditArchivedChain)

	if cfg.IsDevelopment() {
		api.POST("/demo", adminHandler.RunDemo)
	}

	// Health check
	se.Router.GET("/health", adminHandler.Health)
}

// openArchive builds the configured archive backend. The redis client is
// returned so the caller can share and close it.
func openArchive(ctx context.Context, app core.App, cfg *config.Config) (services.Archive, *redis.Client, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveNone, "":
		return nil, nil, nil
	case config.ArchivePocketBase:
		return archive.NewPocketBaseArchive(app), nil, nil
	case config.ArchiveRedis:
		redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis archive: %w", err)
		}
		return archive.NewRedisArchive(redisClient, cfg.ArchivePrefix), redisClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	slog.Info("metrics server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")
	cancel()
}
