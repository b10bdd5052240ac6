// cmd/site-server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collision-site/internal/common/aws"
	"collision-site/internal/common/camunda"
	"collision-site/internal/common/config"
	"collision-site/internal/common/database"
	sitehttp "collision-site/internal/common/http"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/observability"
	"collision-site/internal/server"
	submitapplication "collision-site/internal/workers/application/submit-application"
	emailsend "collision-site/internal/workers/communication/email-send"
	notifydispatch "collision-site/internal/workers/communication/notify-dispatch"
	notifyjob "collision-site/internal/workers/communication/notify-job"
	calendlyrelay "collision-site/internal/workers/scheduling/calendly-relay"

	"go.uber.org/zap"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func newMailer(ctx context.Context, cfg *config.Config, log logger.Logger) (notifydispatch.Mailer, error) {
	if cfg.Mail.Provider == "ses" {
		return aws.NewSESMailer(ctx, cfg.Mail.SES.Region)
	}
	return emailsend.NewService(emailsend.ConfigFromApp(cfg), log)
}

func main() {
	migrate := flag.Bool("migrate", false, "create the database schema and exit")
	flag.Parse()

	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format).
		With(zap.String("service", cfg.App.Name), zap.String("environment", cfg.App.Environment))
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("Failed to initialize observability", zap.Error(err))
	}

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("Failed to open PostgreSQL", zap.Error(err))
	}
	defer pg.Close()

	err = retryWithBackoff(func() error {
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected")

	if *migrate {
		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("Schema bootstrap failed", zap.Error(err))
		}
		zapLog.Info("Schema is up to date")
		return
	}

	checks := map[string]server.Pinger{"postgres": pg}

	// --- Redis (optional) ---
	var (
		deduper  *calendlyrelay.Deduper
		formLock *submitapplication.FormLock
	)
	rdb, err := database.NewRedis(cfg.Database.Redis)
	switch {
	case errors.Is(err, database.ErrRedisDisabled):
		zapLog.Warn("Redis not configured, webhook dedup and submit locks disabled")
	case err != nil:
		zapLog.Fatal("Failed to create Redis client", zap.Error(err))
	default:
		defer rdb.Close()
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		zapLog.Info("Redis connected")

		checks["redis"] = rdb
		if cfg.Webhook.DedupEnabled {
			deduper = calendlyrelay.NewDeduper(rdb.Client, config.GetSeconds(cfg.Webhook.DedupTTL))
		}
		formLock = submitapplication.NewFormLock(rdb.Client, config.GetSeconds(cfg.Careers.LockTTL))
	}

	// --- Notifications ---
	mailer, err := newMailer(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("Failed to initialize mail transport", zap.Error(err), zap.String("provider", cfg.Mail.Provider))
	}
	if smtpSvc, ok := mailer.(*emailsend.Service); ok {
		checks["smtp"] = server.PingFunc(smtpSvc.TestConnection)
	}

	var dispatchOpts []notifydispatch.ServiceOption
	if cfg.Notifications.SMS.Enabled {
		sms, err := aws.NewSMSSender(ctx, cfg.Notifications.SMS.Region)
		if err != nil {
			zapLog.Fatal("Failed to initialize SMS sender", zap.Error(err))
		}
		dispatchOpts = append(dispatchOpts, notifydispatch.WithSMS(sms))
	}
	dispatcher := notifydispatch.NewService(notifydispatch.ConfigFromApp(cfg), mailer, log, dispatchOpts...)

	// --- Webhook relay ---
	relayCfg := calendlyrelay.ConfigFromApp(cfg)
	relayOpts := []calendlyrelay.ServiceOption{calendlyrelay.WithObservability(obs)}
	if deduper != nil {
		relayOpts = append(relayOpts, calendlyrelay.WithDeduper(deduper))
	}
	relay := calendlyrelay.NewService(relayCfg, sitehttp.NewClient(relayCfg.ForwardTimeout), log, relayOpts...)

	// --- Careers ---
	objects, err := aws.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		zapLog.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	zapLog.Info("Object storage ready", zap.String("bucket", objects.Bucket()))
	var careerOpts []submitapplication.ServiceOption
	if formLock != nil {
		careerOpts = append(careerOpts, submitapplication.WithFormLock(formLock))
	}
	careers := submitapplication.NewService(
		submitapplication.ConfigFromApp(cfg),
		objects,
		submitapplication.NewRepository(pg.DB),
		dispatcher,
		log,
		careerOpts...,
	)

	// --- Zeebe (optional) ---
	var jobWorker *camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		zb, err := camunda.NewClientWithConfig(ctx, camunda.ClientConfigFromApp(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("Failed to connect to Zeebe", zap.Error(err))
		}
		defer zb.Close()
		zapLog.Info("Zeebe client connected", zap.String("broker", cfg.Camunda.BrokerAddress))

		checks["zeebe"] = server.PingFunc(zb.HealthCheck)
		jobCfg := notifyjob.ConfigFromApp(cfg)
		jobWorker = camunda.NewWorker(zb.GetClient(), camunda.WorkerConfig{
			TaskType:      jobCfg.TaskType,
			MaxJobsActive: jobCfg.MaxJobsActive,
			Timeout:       jobCfg.Timeout,
		}, notifyjob.NewHandler(jobCfg, dispatcher, log), log)
	}

	mux := server.NewMux(server.Handlers{
		Notify:       notifydispatch.NewHandler(dispatcher, log),
		Calendly:     calendlyrelay.NewHandler(relay, log),
		Applications: submitapplication.NewHandler(careers, log),
		Validate:     submitapplication.NewValidateHandler(),
	}, server.Options{
		Observability: obs,
		Checks:        checks,
		Version:       cfg.App.Version,
	}, log)

	srv := &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        http.TimeoutHandler(mux, config.GetDuration(cfg.Server.RequestTimeout), `{"error":"Request timed out"}`),
		ReadTimeout:    config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:   config.GetDuration(cfg.Server.WriteTimeout),
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
