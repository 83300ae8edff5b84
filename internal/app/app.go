// Package app wires configuration into the running components shared by the
// server and the operator CLI.
package app

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"cryptotopup/internal/auth"
	"cryptotopup/internal/cache"
	"cryptotopup/internal/config"
	"cryptotopup/internal/db"
	"cryptotopup/internal/events"
	"cryptotopup/internal/gateway"
	"cryptotopup/internal/notify"
	"cryptotopup/internal/repository"
	"cryptotopup/internal/service"
)

// App holds the wired components.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Cache   *cache.Client
	Gateway *gateway.Client
	JWT     *auth.JWTService

	Repos  repository.Repositories
	Events service.EventLogger
	Users  service.UserService
	Topups service.TopupService
}

// New opens the database, migrates it and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var gw *gateway.Client
	if cfg.Shkeeper.Enabled {
		gw = gateway.New(gateway.Config{
			BaseURL:        cfg.Shkeeper.BaseURL,
			APIKey:         cfg.Shkeeper.APIKey,
			CallbackAPIKey: cfg.Shkeeper.CallbackAPIKey,
			Timeout:        cfg.Shkeeper.Timeout,
			Crypto:         cfg.Shkeeper.Crypto,
			Currency:       cfg.Shkeeper.Currency,
		})
	} else {
		slog.Warn("shkeeper disabled, top-ups will be rejected")
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatIDs)
		if err != nil {
			slog.Error("telegram notifier unavailable, notifications disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Queue.SQSQueueURL != "" {
		sqsPublisher, err := events.NewSQSPublisher(ctx, events.SQSConfig{
			QueueURL:  cfg.Queue.SQSQueueURL,
			Region:    cfg.Queue.AWSRegion,
			AccessKey: cfg.Queue.AWSAccessKey,
			Secret:    cfg.Queue.AWSSecret,
		})
		if err != nil {
			return nil, err
		}
		publisher = sqsPublisher
	}

	repos := repository.NewRepositories(gormDB)
	txManager := repository.NewTxManager(gormDB)
	eventLogger := service.NewEventLogger(repository.NewPaymentEventRepository(gormDB))
	userService := service.NewUserService(repos.Users, cacheClient)

	dispatcher := service.NewDispatcher(eventLogger, service.DefaultFollowups(service.FollowupDeps{
		Users:        repos.Users,
		UserService:  userService,
		Referrals:    service.NewReferralService(txManager, cfg.ReferralTopupBonusPercent),
		Notifier:     notifier,
		AutoPurchase: service.NewAutoPurchaseTrigger(cacheClient, publisher),
		Publisher:    publisher,
		DisplayName:  cfg.Shkeeper.DisplayName,
		Currency:     cfg.Shkeeper.Currency,
	})...)

	topups := service.NewTopupService(repos, txManager, gw, dispatcher, eventLogger, cacheClient, service.TopupConfig{
		MinAmountMinor: cfg.Shkeeper.MinAmountMinor,
		MaxAmountMinor: cfg.Shkeeper.MaxAmountMinor,
		Currency:       cfg.Shkeeper.Currency,
		DisplayName:    cfg.Shkeeper.DisplayName,
		WebhookBaseURL: cfg.Shkeeper.WebhookBaseURL,
		WebhookPath:    cfg.Shkeeper.WebhookPath,
		SuccessURL:     cfg.Shkeeper.SuccessURL,
		FailURL:        cfg.Shkeeper.FailURL,
		PaidStatuses:   cfg.Shkeeper.PaidStatuses,
	})

	return &App{
		Config:  cfg,
		DB:      gormDB,
		Cache:   cacheClient,
		Gateway: gw,
		JWT:     auth.NewJWTService(cfg.JWTSecret),
		Repos:   repos,
		Events:  eventLogger,
		Users:   userService,
		Topups:  topups,
	}, nil
}

// Close flushes pending audit events and closes the database.
func (a *App) Close() {
	a.Events.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
