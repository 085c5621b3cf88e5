package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/billing"
	"storefront_backend/pkg/config"
	"storefront_backend/pkg/cron"
	"storefront_backend/pkg/database"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/importer"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/metrics"
	"storefront_backend/pkg/seed"
	"storefront_backend/pkg/subscription"
	"storefront_backend/pkg/tenant"
	"storefront_backend/pkg/utils/cloudflare"
	"storefront_backend/pkg/utils/jwt"
	"storefront_backend/pkg/utils/storage"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Server.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting storefront backend", cfg.LogFields()...)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("could not connect to database", zap.Error(err))
	}
	if err := database.MigrateDatabase(db, model.All()...); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if cfg.Server.Env != "production" {
		if err := seed.Run(db, cfg.Platform, log); err != nil {
			log.Warn("seeding failed", zap.Error(err))
		}
	}

	var cache tenant.Cache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, tenant cache disabled", zap.Error(err))
		} else {
			cache = tenant.NewRedisCache(client, cfg.Redis.TTL)
			defer client.Close()
		}
	}
	resolver := tenant.NewResolver(db, cfg.Platform.BaseDomain, cache, log)
	enforcer := subscription.NewEnforcer(db, log)

	var notifier email.Notifier = email.Nop{}
	if svc, err := email.NewEmailService(cfg.Email.ResendAPIKey, cfg.Email.From, log); err != nil {
		log.Warn("email disabled", zap.Error(err))
	} else {
		notifier = svc
	}

	var provider billing.PaymentProvider
	if cfg.Stripe.SecretKey != "" {
		provider = billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
	} else {
		log.Warn("stripe secret key not set, checkout disabled")
	}
	billingService := billing.NewService(db, provider, cfg.Stripe.PricePlans, notifier, log)

	uploader, err := cloudflare.NewUploader(context.Background(), cfg.R2)
	switch {
	case errors.Is(err, cloudflare.ErrNotConfigured) && cfg.R2.LocalDir != "":
		local, lerr := storage.NewLocalStore(cfg.R2.LocalDir)
		if lerr != nil {
			log.Fatal("could not prepare upload dir", zap.Error(lerr))
		}
		uploader = cloudflare.NewUploaderWithClient(local, "local", localUploadsPath)
		log.Info("storing uploads on disk", zap.String("dir", cfg.R2.LocalDir))
	case err != nil:
		log.Warn("object storage disabled", zap.Error(err))
		uploader = nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		log.Fatal("could not register metrics", zap.Error(err))
	}

	jobs := cron.NewSubscriptionJobs(db, enforcer, notifier, log)
	scheduler, err := cron.Start(cfg.Cron, jobs, log)
	if err != nil {
		log.Fatal("could not start cron", zap.Error(err))
	}

	app := newApp(&services{
		cfg:      cfg,
		db:       db,
		log:      log,
		tokens:   jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour),
		resolver: resolver,
		enforcer: enforcer,
		billing:  billingService,
		notifier: notifier,
		uploader: uploader,
		importer: importer.New(db, enforcer, log),
		gatherer: registry,
	})

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	<-scheduler.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}
