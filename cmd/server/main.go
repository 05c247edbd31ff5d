package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"warden/internal/guard"
	"warden/internal/identity"
	"warden/internal/platform/config"
	"warden/internal/platform/docstore"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/logger"
	platformredis "warden/internal/platform/redis"
	"warden/internal/profile"
	"warden/internal/session/metrics"
	"warden/internal/session/service"
	httptransport "warden/internal/transport/http"
	"warden/pkg/platform/audit"
	kafkasink "warden/pkg/platform/audit/sink/kafka"
	auditmemory "warden/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, cleanup, err := newDocstore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("docstore: %w", err)
	}
	defer cleanup()

	auditStore, err := newAuditStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	publisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(256))
	defer publisher.Close()

	provider := identity.NewMemoryProvider(
		identity.WithSigningKey([]byte(cfg.IDTokenSigningKey)),
	)
	defer provider.Close()

	session, err := service.New(provider, profile.NewStore(docs),
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithAuditPublisher(publisher),
	)
	if err != nil {
		return fmt.Errorf("session service: %w", err)
	}

	guards := guard.NewEvaluator(session,
		guard.WithSettleTimeout(cfg.GuardSettleTimeout))

	router := httptransport.NewRouter(session, guards, log)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.Run(ctx)
	})

	g.Go(func() error {
		log.Info("starting warden", "addr", cfg.Addr, "docstore", string(cfg.Docstore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newDocstore(ctx context.Context, cfg config.Config) (docstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Docstore {
	case config.DocstoreMemory:
		return docstore.NewMemory(), noop, nil

	case config.DocstoreRedis:
		client, err := platformredis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return docstore.NewRedis(client), func() { _ = client.Close() }, nil

	case config.DocstorePostgres:
		if cfg.PostgresDSN == "" {
			return nil, nil, errors.New("postgres docstore selected but WARDEN_POSTGRES_DSN unset")
		}
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store := docstore.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown docstore backend %q", cfg.Docstore)
	}
}

func newAuditStore(ctx context.Context, cfg config.Config) (audit.Store, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return auditmemory.NewInMemoryStore(), nil
	}
	return kafkasink.NewSink(ctx, cfg.KafkaBrokers,
		kafkasink.WithTopic(cfg.AuditTopic))
}
