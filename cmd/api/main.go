package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medreferral/medbot/cmd/mainconfig"
	"github.com/medreferral/medbot/internal/api/router"
	"github.com/medreferral/medbot/internal/chat"
	appconfig "github.com/medreferral/medbot/internal/config"
	"github.com/medreferral/medbot/internal/engine"
	"github.com/medreferral/medbot/internal/ledger"
	"github.com/medreferral/medbot/internal/notify"
	"github.com/medreferral/medbot/internal/observability/metrics"
	"github.com/medreferral/medbot/internal/session"
	"github.com/medreferral/medbot/internal/transcript"
	"github.com/medreferral/medbot/internal/triage"
	"github.com/medreferral/medbot/internal/webchat"
	"github.com/medreferral/medbot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	chatMetrics := metrics.NewChatMetrics(nil)

	// Appointment ledger: Postgres when configured, in-memory otherwise.
	var appointments ledger.Store
	var transcripts *transcript.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		appointments = ledger.NewPostgresStore(pool)

		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open transcript db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		transcripts = transcript.NewStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory appointment store")
		appointments = ledger.NewMemoryStore()
	}

	sessions := newSessionStore(ctx, cfg, logger)

	sender := newEmailSender(ctx, cfg, logger)
	mailer := notify.NewMailer(sender, logger)

	registry := webchat.NewRegistry(logger)

	dispatcher := newDispatcher(ctx, cfg, mailer, registry, chatMetrics, logger)
	dispatcher.Start()

	localAnalyzer := triage.NewLocalAnalyzer()
	var analyzer triage.Analyzer = localAnalyzer
	if cfg.TriageServiceURL != "" {
		client, err := triage.NewClient(triage.ClientConfig{
			BaseURL: cfg.TriageServiceURL,
			Timeout: cfg.TriageTimeout,
		})
		if err != nil {
			logger.Error("failed to configure triage client", "error", err)
			os.Exit(1)
		}
		analyzer = client
	}

	eng := engine.New(appointments, analyzer, logger,
		engine.WithFollowUpDelay(cfg.FollowUpDelay),
	)
	service := chat.NewService(eng, sessions, transcripts, dispatcher, registry, chatMetrics, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		ChatHandler:         chat.NewHandler(service, logger),
		WebChatHandler:      webchat.NewHandler(service, registry, logger),
		TriageHandler:       triage.NewHandler(localAnalyzer, logger),
		RelayHandler:        notify.NewHandler(mailer, logger),
		AppointmentsHandler: ledger.NewHandler(appointments, logger),
		MetricsHandler:      promhttp.Handler(),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func newSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory session store")
		return session.NewMemoryStore()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory session store", "addr", cfg.RedisAddr, "error", err)
		return session.NewMemoryStore()
	}

	return session.NewRedisStore(client, cfg.SessionTTL)
}

func newEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("sendgrid not configured, emails will be stubbed")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for SES", "error", err)
			os.Exit(1)
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("SES not configured, emails will be stubbed")
	}
	return notify.NewStubEmailSender(logger)
}

func newDispatcher(ctx context.Context, cfg *appconfig.Config, mailer *notify.Mailer, registry *webchat.Registry, chatMetrics *metrics.ChatMetrics, logger *logging.Logger) *notify.Dispatcher {
	dispatcherCfg := notify.DispatcherConfig{
		Workers: cfg.WorkerCount,
		Observer: func(kind notify.Kind, success bool) {
			chatMetrics.ObserveNotification(string(kind), success)
		},
	}

	if cfg.UseMemoryQueue || cfg.NotificationQueueURL == "" {
		return notify.NewDispatcher(notify.NewMemoryQueue(64), mailer, registry, logger, dispatcherCfg)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config for SQS", "error", err)
		os.Exit(1)
	}
	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotificationQueueURL)
	return notify.NewDispatcher(queue, mailer, registry, logger, dispatcherCfg)
}
