package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atriumverse/atrium/internal/api"
	"github.com/atriumverse/atrium/internal/config"
	coresys "github.com/atriumverse/atrium/internal/core/system"
	"github.com/atriumverse/atrium/internal/data"
	"github.com/atriumverse/atrium/internal/handler"
	"github.com/atriumverse/atrium/internal/metrics"
	"github.com/atriumverse/atrium/internal/minutes"
	gonet "github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/persist"
	"github.com/atriumverse/atrium/internal/scripting"
	"github.com/atriumverse/atrium/internal/system"
	"github.com/atriumverse/atrium/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              Atrium  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        virtual office · Go server         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load("config/atrium.toml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Create repositories and the async presence writer
	userRepo := persist.NewUserRepo(db)
	meetingRepo := persist.NewMeetingRepo(db)

	presence := persist.NewPresenceWriter(userRepo, cfg.Network.PresenceQueueSize, log)
	presenceCtx, stopPresence := context.WithCancel(context.Background())
	defer stopPresence()
	go presence.Run(presenceCtx)

	// 5. Load world data
	printSection("world data")

	office, err := data.LoadOfficeMap(cfg.World.MapPath)
	if err != nil {
		return fmt.Errorf("load office map: %w", err)
	}
	printStat("map tiles", office.Grid.Width*office.Grid.Height)

	zones, err := data.LoadZones(cfg.World.ZonesPath)
	if err != nil {
		return fmt.Errorf("load zones: %w", err)
	}
	printStat("zones", len(zones))

	access, err := data.LoadAccessTable(cfg.World.AccessPath)
	if err != nil {
		return fmt.Errorf("load access table: %w", err)
	}

	interactables, err := data.LoadInteractables(cfg.World.InteractablesPath)
	if err != nil {
		return fmt.Errorf("load interactables: %w", err)
	}
	printStat("interactables", interactables.Count())

	// 5b. Initialize Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	// 6. Metrics, tokens, websocket server
	met := metrics.New()

	tokens, err := api.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	netServer := gonet.NewServer(cfg.Network, tokens.Verify, log)

	// 7. Meeting minutes pipeline
	queue := minutes.NewQueue(cfg.Meeting.QueueSize)
	worker := minutes.NewWorker(queue, minutes.NewLLMClient(cfg.Meeting), meetingRepo, met, log)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go worker.Run(workerCtx)

	// 8. Handler registry and game loop dependencies
	registry := world.NewRegistry(cfg.World.ProximityRadius, log)
	deps := &handler.Deps{
		Config:        cfg,
		Log:           log,
		World:         registry,
		Zones:         zones,
		Access:        access,
		Geo:           office.Grid,
		SpawnX:        office.SpawnX,
		SpawnY:        office.SpawnY,
		Interactables: interactables,
		Scripting:     luaEngine,
		Sessions:      make(map[string]*gonet.Session),
		Presence:      presence,
		Metrics:       met,
	}
	handlerReg := handler.NewRegistry(log)
	handler.RegisterAll(handlerReg, deps)

	// 9. REST boundary
	restServer := api.NewServer(cfg, tokens, userRepo, meetingRepo, queue, netServer, met, log)
	httpServer := &http.Server{
		Addr:         cfg.HTTP.BindAddress,
		Handler:      restServer.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	// 10. Create systems and register with runner
	resolver := world.Resolver{
		Radius: cfg.World.ProximityRadius,
		LOS:    cfg.World.LOSEnabled && cfg.World.LOSGatesCalls,
		Geo:    office.Grid,
	}
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, handlerReg, deps, cfg.Network.MaxEventsPerTick, log))
	runner.Register(system.NewProximitySystem(deps, resolver, cfg.World.ProximityInterval))
	runner.Register(system.NewOutputSystem(deps))

	// 11. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tick := time.Second / time.Duration(cfg.Network.TickRate)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", cfg.HTTP.BindAddress))
	printReady(fmt.Sprintf("game loop started (tick: %s)", tick))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(tick)
		case err := <-httpErr:
			return fmt.Errorf("http server: %w", err)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))

			// Stop accepting requests, then disconnect every session so
			// presence goes offline before the writer drains.
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			httpServer.Shutdown(shutdownCtx)
			cancelShutdown()

			for id, sess := range deps.Sessions {
				handler.HandleDisconnect(id, deps)
				sess.Close()
			}

			stopWorker()
			stopPresence()
			presence.Wait()

			log.Info("server stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
