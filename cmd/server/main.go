// Package main is the entry point for the kidzone API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kidzone/internal/auth"
	"kidzone/internal/bot"
	"kidzone/internal/cache"
	"kidzone/internal/config"
	"kidzone/internal/game"
	"kidzone/internal/handler"
	"kidzone/internal/pkg/db"
	"kidzone/internal/pkg/lock"
	"kidzone/internal/repository"
	"kidzone/internal/scheduler"
	"kidzone/internal/server"
	"kidzone/internal/service"
	"kidzone/internal/wheel"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	approvalRepo := repository.NewApprovalRepository(dbPool.Pool)
	profileRepo := repository.NewProfileRepository(dbPool.Pool)
	petRepo := repository.NewPetRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	activityRepo := repository.NewActivityRepository(dbPool.Pool)
	spinRepo := repository.NewSpinRepository(dbPool.Pool)
	badgeRepo := repository.NewBadgeRepository(dbPool.Pool)
	gameStateRepo := repository.NewGameStateRepository(dbPool.Pool)

	// The leaderboard cache is optional; without redis every read hits postgres.
	var leaderboardCache cache.Leaderboard = cache.Nop{}
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.Connect(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer redisClient.Close()
		leaderboardCache = cache.NewRedisLeaderboard(redisClient, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Leaderboard cache enabled")
	}

	spinWheel, err := wheel.New(wheel.DefaultSegments, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build spin wheel")
	}

	gameRegistry := game.NewDefaultRegistry()
	log.Info().
		Int("game_count", gameRegistry.Count()).
		Msg("Games registered")

	userLock := lock.NewUserLock()

	// Services
	approvalService := service.NewApprovalService(approvalRepo, cfg)
	economyService := service.NewEconomyService(petRepo, ledgerRepo, userLock, leaderboardCache, cfg.Economy, cfg.Profile.DefaultPetName)
	badgeService := service.NewBadgeService(badgeRepo, activityRepo, spinRepo, profileRepo, petRepo, economyService)
	spinService := service.NewSpinService(spinRepo, petRepo, economyService, spinWheel, userLock, cfg.Spin.Cooldown)
	spinService.SetBadges(badgeService)
	activityService := service.NewActivityService(activityRepo, gameStateRepo, gameRegistry, cfg, leaderboardCache, cfg.Activity, cfg.Games.AllowUnknown)
	activityService.SetBadges(badgeService)
	profileService := service.NewProfileService(profileRepo, activityService, badgeService, cfg.Profile)
	petService := service.NewPetService(petRepo, economyService, userLock)
	gateService := service.NewGateService(profileRepo, approvalRepo)
	leaderboardService := service.NewLeaderboardService(petRepo, leaderboardCache)

	jobs := scheduler.Jobs{Leaderboard: leaderboardService}

	var adminBot *bot.Bot
	if cfg.Bot.Token != "" {
		adminBot, err = bot.New(&bot.Dependencies{
			Config:    cfg,
			Approvals: approvalService,
			Activity:  activityService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create admin bot")
		}
		approvalService.SetNotifier(adminBot.Notifier())
		jobs.Approvals = approvalService
		jobs.Digest = adminBot.Notifier()
	}

	sched, err := scheduler.New(cfg.Scheduler, jobs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	handlers := &handler.Handlers{
		Approval: handler.NewApprovalHandler(approvalService),
		Trophy:   handler.NewTrophyHandler(economyService, leaderboardService),
		Game:     handler.NewGameHandler(activityService),
		Spin:     handler.NewSpinHandler(spinService),
		Profile:  handler.NewProfileHandler(profileService, petService, badgeService, gateService),
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	srv := server.New(cfg.Server, verifier, handlers, dbPool)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server is starting...")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if adminBot != nil {
		go adminBot.Start()
	}

	sched.Start()
	log.Info().Strs("jobs", sched.JobNames()).Msg("Scheduler started")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}
	if adminBot != nil {
		adminBot.Stop()
	}
	log.Info().Msg("Server stopped gracefully")
}
