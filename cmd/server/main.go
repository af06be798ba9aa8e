package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/config" // Internal config loader
	"github.com/iliyamo/src-portal/internal/database"
	"github.com/iliyamo/src-portal/internal/handler"
	"github.com/iliyamo/src-portal/internal/logger"
	"github.com/iliyamo/src-portal/internal/middleware"
	"github.com/iliyamo/src-portal/internal/queue"
	"github.com/iliyamo/src-portal/internal/repository"
	"github.com/iliyamo/src-portal/internal/router" // Internal router setup
	"github.com/iliyamo/src-portal/internal/service"
	"github.com/iliyamo/src-portal/internal/session"
	"github.com/iliyamo/src-portal/internal/settings"
	"github.com/iliyamo/src-portal/internal/view"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
	started := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- MySQL ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
	}

	users := repository.NewUserRepo(db)
	flags := settings.NewService(repository.NewSettingRepo(db))
	notifications := repository.NewNotificationRepo(db)

	if _, err := service.BootstrapSuperAdmin(ctx, users, cfg.Bootstrap, cfg.BcryptCost, log); err != nil {
		log.Fatal().Err(err).Msg("bootstrap super admin")
	}

	// ---- Redis (optional) ----
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	sessOpts := session.Options{IdleTimeout: cfg.Session.IdleTimeout, MaxAge: cfg.Session.MaxAge}
	var sessions session.Store
	storeKind := "memory"
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Session.RedisPrefix, sessOpts)
		storeKind = "redis"
	} else {
		log.Warn().Msg("redis unavailable: sessions kept in memory, throttling and page cache off")
		sessions = session.NewMemoryStore(sessOpts)
	}

	// ---- RabbitMQ ----
	queues := []string{cfg.AMQP.EmailQueue, cfg.AMQP.SMSQueue}
	pub := service.NewAMQPPublisher(cfg.AMQP.URL, queues, log.Named("publisher"))
	defer pub.Close()
	if cfg.AMQP.Consumer {
		outbox := &queue.OutboxConsumer{URL: cfg.AMQP.URL, Queues: queues, LogPath: cfg.AMQP.OutboxLog, Log: log.Named("outbox")}
		go func() {
			if err := outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("outbox consumer stopped")
			}
		}()
	}
	dispatcher := &service.Dispatcher{
		Users:      users,
		Inbox:      notifications,
		Pub:        pub,
		Flags:      flags,
		EmailQueue: cfg.AMQP.EmailQueue,
		SMSQueue:   cfg.AMQP.SMSQueue,
		Log:        log.Named("dispatch"),
	}

	// ---- HTTP ----
	renderer, err := view.New()
	if err != nil {
		log.Fatal().Err(err).Msg("parse templates")
	}
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Renderer = renderer
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	ck := middleware.NewCookies(cfg.Session)
	e.Use(logger.RequestLogger(log.Named("http")))
	e.Use(middleware.LoadSession(ck, sessions, authz.NewResolver(users), log))

	base := handler.Base{Cookies: ck, Log: log}
	router.RegisterRoutes(e, router.Deps{
		Cookies: ck,
		Flags:   flags,
		Login:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, ck),
		Cache:   middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		Auth: &handler.AuthHandler{
			Base:     base,
			Users:    users,
			Sessions: sessions,
			Resets:   repository.NewResetRepo(db),
			Mail:     dispatcher,
			Opts: handler.AuthOptions{
				BcryptCost:     cfg.BcryptCost,
				PasswordMaxAge: time.Duration(cfg.Session.PasswordMaxAgeDays) * 24 * time.Hour,
				ResetSecret:    cfg.ResetSecret,
				ResetTTL:       cfg.Session.ResetTTL,
				BaseURL:        cfg.BaseURL,
			},
		},
		Dashboard: &handler.DashboardHandler{Base: base, Inbox: notifications},
		Budgets:   &handler.BudgetHandler{Base: base, Budgets: repository.NewBudgetRepo(db)},
		Elections: &handler.ElectionHandler{Base: base, Elections: repository.NewElectionRepo(db)},
		Minutes:   &handler.MinutesHandler{Base: base, Minutes: repository.NewMinutesRepo(db)},
		Messaging: &handler.MessagingHandler{Base: base, Notifications: notifications, Dispatch: dispatcher},
		Chat:      &handler.ChatHandler{Base: base, Chat: repository.NewChatRepo(db)},
		Senate: &handler.SenateHandler{
			Base:         base,
			Senate:       repository.NewSenateRepo(db),
			DB:           db,
			Redis:        rdb,
			SessionStore: storeKind,
			Started:      started,
		},
		Admin:    &handler.AdminHandler{Base: base, Flags: flags, Users: users, Sessions: sessions, BcryptCost: cfg.BcryptCost},
		Policies: &handler.PolicyHandler{Base: base},
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("sessions", storeKind).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server") // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
