package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"casino-bot/internal/bot"
	"casino-bot/internal/config"
	"casino-bot/internal/handlers"
	"casino-bot/internal/logger"
	"casino-bot/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("casino stopped", zap.Error(err))
	}
}

func openStore(cfg *config.Config, redisService *services.RedisService, zlog *zap.Logger) (services.Store, error) {
	if cfg.LedgerBackend != config.BackendPostgres {
		return redisService, nil
	}
	pg, err := services.NewPostgresService(cfg)
	if err != nil {
		return nil, err
	}
	zlog.Info("using postgres ledger")
	return pg, nil
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs rate limiting whichever ledger is selected.
	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		return err
	}
	defer redisService.Close()

	store, err := openStore(cfg, redisService, zlog)
	if err != nil {
		return err
	}
	if store != services.Store(redisService) {
		defer store.Close()
	}

	jwtService, err := services.NewJWTService(cfg)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		zlog.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	hub := handlers.NewWebSocketHub(zlog)

	gameEngine, err := services.NewGameEngine(store, services.EngineOptions{
		RoundTimeout:   cfg.RoundTimeout,
		SettleMaxTries: cfg.SettleMaxTries,
		Broadcaster:    hub,
		Logger:         zlog,
	})
	if err != nil {
		return err
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepSchedule, func() {
		gameEngine.CleanupStaleGames(ctx)
	}); err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		GameEngine: gameEngine,
		JWTService: jwtService,
		Limiter:    redisService,
		Readiness:  redisService,
		Hub:        hub,
		Logger:     zlog,
		APIKey:     cfg.APIKey,
	})

	var discord *bot.Bot
	if cfg.BotToken != "" {
		if discord, err = bot.New(cfg.BotToken, cfg.DiscordGuildID, gameEngine, zlog); err != nil {
			return err
		}
	} else {
		zlog.Info("DISCORD_TOKEN not set, running without the discord bot")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		<-sweeper.Stop().Done()
		return nil
	})

	g.Go(func() error {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("ledger", cfg.LedgerBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if discord != nil {
		g.Go(func() error {
			return discord.Run(gctx)
		})
	}

	err = g.Wait()
	zlog.Info("shutting down", zap.Int("open_rounds", gameEngine.OpenRounds()))
	return err
}
