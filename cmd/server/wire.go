package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"trainer-scheduler/internal/app"
	"trainer-scheduler/internal/config"
	"trainer-scheduler/internal/gcal"
	"trainer-scheduler/internal/hold"
	"trainer-scheduler/internal/notify"
	"trainer-scheduler/internal/scheduling"
	"trainer-scheduler/internal/storage"
)

type deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Catalog     *scheduling.Catalog
	Credentials scheduling.CredentialStore
	Gateway     *gcal.Gateway
	OAuth       *oauth2.Config
	Postgres    *storage.Postgres
	Engine      *scheduling.Engine

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func (d *deps) App() *app.App {
	a := &app.App{
		Engine:       d.Engine,
		Catalog:      d.Catalog,
		Credentials:  d.Credentials,
		Calendars:    d.Gateway,
		States:       gcal.NewStateStore(10 * time.Minute),
		TrainerEmail: d.Config.TrainerEmail,
		Logger:       d.Logger,
	}
	if d.OAuth != nil {
		a.OAuth = d.OAuth
	}
	if d.Postgres != nil {
		a.Ledger = d.Postgres
	}
	return a
}

// wire builds the engine and its collaborators from cfg. Optional backends
// are enabled by their connection settings.
func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger, notifications bool) (_ *deps, err error) {
	d := &deps{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	d.Catalog, err = scheduling.NewCatalog(cfg.Services)
	if err != nil {
		return nil, err
	}

	var opts []scheduling.Option
	opts = append(opts, scheduling.WithLogger(logger.Named("scheduling")))

	if cfg.DatabaseURL != "" {
		pg, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pg.Close)
		if err := migrate(ctx, pg, logger); err != nil {
			return nil, err
		}
		d.Postgres = pg
		d.Credentials = pg
		opts = append(opts, scheduling.WithBookingRecorder(pg))
		logger.Info("using postgres credential store and bookings ledger")
	} else {
		fs, err := storage.OpenFileStore(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		d.Credentials = fs
		logger.Info("using file credential store", zap.String("path", cfg.CredentialsFile))
	}

	d.OAuth = gcal.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if d.OAuth == nil {
		logger.Warn("Google OAuth client is not configured; token refresh and the OAuth flow are disabled")
	}
	d.Gateway = gcal.NewGateway(d.OAuth, d.Credentials, cfg.Location, logger.Named("gcal"),
		gcal.WithTransport(otelhttp.NewTransport(http.DefaultTransport)))

	if cfg.RedisURL != "" {
		rdb, err := hold.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		opts = append(opts, scheduling.WithSlotHolder(hold.NewRedisHolder(rdb, cfg.HoldTTL, "trainer-scheduler", logger.Named("hold"))))
		logger.Info("slot holds enabled", zap.Duration("ttl", cfg.HoldTTL))
	}

	if notifications {
		opts = append(opts, scheduling.WithNotifier(d.notifier(cfg, logger)))
	}

	d.Engine = scheduling.NewEngine(d.Credentials, d.Gateway, cfg.CalendarID, cfg.Location, opts...)
	return d, nil
}

func (d *deps) notifier(cfg *config.Config, logger *zap.Logger) scheduling.Notifier {
	var multi notify.Multi
	if cfg.SMTPHost != "" {
		mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		multi = append(multi, notify.NewEmailNotifier(mailer, cfg.Location))
		logger.Info("email notifications enabled", zap.String("smtp_host", cfg.SMTPHost))
	}
	if cfg.KafkaBrokers != "" {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.closers = append(d.closers, func() {
			if err := kn.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		})
		multi = append(multi, kn)
		logger.Info("kafka notifications enabled", zap.String("topic", cfg.KafkaTopic))
	}
	if len(multi) == 0 {
		return notify.LogNotifier{Logger: logger.Named("notify")}
	}
	return multi
}
