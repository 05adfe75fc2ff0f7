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

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/notification"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", os.Getenv("DEVSERVER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devserver: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devserver: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("devserver stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	var publisher store.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	es, sessions, cleanup, err := openStores(ctx, cfg, publisher, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	app := api.NewApp(es, api.AppConfig{
		JWTService:    auth.NewJWTService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Hasher:        auth.NewPasswordHasher(cfg.BcryptCost),
		Sessions:      sessions,
		Logger:        logger,
		AllowedOrigin: cfg.AllowedOrigin,
		BypassHeader:  config.DefaultClient().BypassHeader,
	})

	replayed, err := app.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	logger.Info("read models rebuilt", zap.Int("events", replayed))

	if err := seed(ctx, cfg, app, logger); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaGroupID != "" {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
		defer consumer.Close()
		g.Go(func() error {
			err := consumer.Consume(gctx, notifier(cfg.Mail, logger).HandleEvent)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// openStores picks Postgres for events and refresh sessions when a database
// URL is configured, and memory otherwise. A nil SessionStore lets the app
// keep sessions in its read store.
func openStores(ctx context.Context, cfg config.Server, publisher store.Publisher, logger *zap.Logger) (api.EventStore, store.SessionStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory event store")
		return store.NewEventStore(publisher, logger), nil, func() {}, nil
	}

	db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	es := store.NewPostgresEventStore(db, publisher, logger)
	if err := es.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to migrate event store: %w", err)
	}
	sessions := store.NewPostgresSessionStore(db)
	if err := sessions.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to migrate session store: %w", err)
	}
	logger.Info("using postgres event and session store")
	return es, sessions, func() { _ = db.Close() }, nil
}

func seed(ctx context.Context, cfg config.Server, app *api.App, logger *zap.Logger) error {
	if cfg.SeedCatalog {
		seeded, err := app.SeedCatalog(ctx)
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("sample catalog created")
		}
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := app.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator"); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		logger.Info("admin account ready", zap.String("email", cfg.AdminEmail))
	}
	return nil
}

// notifier logs every event on the topic and, when SMTP is configured,
// welcomes new sign-ups by email.
func notifier(cfg config.MailConfig, logger *zap.Logger) *notification.Handler {
	var sender email.Sender
	if cfg.SMTPHost != "" {
		sender = email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.StoreURL)
		logger.Info("welcome emails enabled",
			zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort),
			zap.String("from", cfg.From))
	}
	return notification.NewHandler(sender, logger)
}
