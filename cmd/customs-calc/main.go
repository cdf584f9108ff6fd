package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"customs-calc/internal/api"
	"customs-calc/internal/api/handlers"
	"customs-calc/internal/bot"
	"customs-calc/internal/intake"
	"customs-calc/internal/repository"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"
	"customs-calc/pkg/auth"
	"customs-calc/pkg/config"
	"customs-calc/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// @title Customs Calculator API
// @version 1.0
// @description Ukrainian customs payments calculator for imported vehicles

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting customs calculator", zap.String("db_driver", cfg.Database.Driver))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Persistence. A store that cannot be opened degrades to memory only.
	var store service.CalculationStore
	durable, closeStore, err := repository.Open(ctx, &cfg.Database, appLogger)
	switch {
	case err != nil:
		appLogger.Warn("Failed to open database, calculations are kept in memory only", zap.Error(err))
	case durable != nil:
		if err := durable.EnsureSchema(ctx); err != nil {
			appLogger.Warn("Failed to ensure schema, calculations are kept in memory only", zap.Error(err))
		} else {
			store = durable
		}
	}
	if closeStore != nil {
		defer closeStore()
	}

	mirror := repository.NewCalculationMirror(cfg.History.MirrorCapacity)
	rateService := service.NewRateService(&cfg.NBU, appLogger)
	engine := tariff.NewEngine(time.Now)
	calcService := service.NewCalculationService(engine, rateService, store, mirror, cfg.Persist.WriteTimeout, appLogger)

	sessions := intake.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval, func() *intake.Machine {
		return intake.NewMachine(intake.WithElectricBenefits(cfg.Tariff.ElectricBenefitsEnabled))
	})
	dialogue := service.NewDialogueService(sessions, calcService, appLogger)

	if !cfg.Server.Enabled && cfg.Telegram.Token == "" {
		appLogger.Fatal("Nothing to run: set BOT_TOKEN or enable HTTP_ENABLED")
	}

	// Telegram bot
	botDone := make(chan struct{})
	if cfg.Telegram.Token != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			appLogger.Fatal("Failed to connect to Telegram", zap.Error(err))
		}
		botAPI.Debug = cfg.Telegram.Debug
		appLogger.Info("Authorized on Telegram", zap.String("bot", botAPI.Self.UserName))

		chatBot := bot.New(botAPI, dialogue, calcService, &cfg.Telegram, cfg.History.Limit, appLogger)
		go func() {
			defer close(botDone)
			chatBot.Run(ctx)
		}()
	} else {
		close(botDone)
		appLogger.Warn("BOT_TOKEN is not set, Telegram bot is disabled")
	}

	// HTTP API
	var shutdownHTTP func() error
	if cfg.Server.Enabled {
		var jwtManager *auth.JWTManager
		if cfg.JWT.Configured() {
			jwtManager = auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)
		}
		app := api.SetupRouter(api.Handlers{
			Calculation: handlers.NewCalculationHandler(calcService, cfg.History.Limit, cfg.Tariff.ElectricBenefitsEnabled, appLogger),
			Rate:        handlers.NewRateHandler(calcService, appLogger),
			Dialogue:    handlers.NewDialogueHandler(dialogue, appLogger),
			Admin:       handlers.NewAdminHandler(calcService, appLogger),
		}, jwtManager, appLogger)
		shutdownHTTP = app.Shutdown

		go func() {
			addr := ":" + cfg.Server.Port
			appLogger.Info("Server starting", zap.String("address", addr))
			if err := app.Listen(addr); err != nil {
				appLogger.Fatal("Server failed", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	stop()

	if shutdownHTTP != nil {
		if err := shutdownHTTP(); err != nil {
			appLogger.Error("Server shutdown error", zap.Error(err))
		}
	}
	<-botDone

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := calcService.Wait(waitCtx); err != nil {
		appLogger.Warn("Pending calculation writes were abandoned", zap.Error(err))
	}
	appLogger.Info("Stopped")
}
