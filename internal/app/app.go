package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/campaign-notes/internal/adapter/redis/lockevents"
	"github.com/heartmarshall/campaign-notes/internal/config"
	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/lease"
	"github.com/heartmarshall/campaign-notes/internal/service/note"
	"github.com/heartmarshall/campaign-notes/internal/service/version"
	"github.com/heartmarshall/campaign-notes/internal/service/visibility"
	"github.com/heartmarshall/campaign-notes/internal/transport/middleware"
	"github.com/heartmarshall/campaign-notes/internal/transport/rest"
)

type eventSink interface {
	Publish(ctx context.Context, ev domain.NoteEvent) error
	Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.NoteEvent, error)
}

// Run is the application entry point. It loads configuration, opens the
// selected store and event bus, and serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("store", cfg.Server.Store),
		slog.String("log_level", cfg.Log.Level),
	)

	st, err := openStores(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	events, closeEvents, err := openEvents(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeEvents()
	if p, ok := events.(*lockevents.Publisher); ok {
		st.checks["redis"] = p
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.CleanupInterval)
	defer limiter.Stop()

	handler := newHandler(*cfg, logger, clockwork.NewRealClock(), st, events, limiter)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newHandler wires services on top of st and returns the root handler.
func newHandler(
	cfg config.Config,
	logger *slog.Logger,
	clock clockwork.Clock,
	st *stores,
	events eventSink,
	limiter *middleware.RateLimiter,
) http.Handler {
	leases := lease.NewManager(st.notes, clock, cfg.Notes.LeaseTTL)
	versions := version.NewManager(logger, st.versions, st.notes, st.tx, clock, cfg.Notes.MaxVersions)
	resolver := visibility.NewResolver(st.notes)

	svc := note.NewService(logger, clock, st.notes, leases, versions, resolver, st.audit, events, st.tx)

	router := rest.NewRouter(
		rest.NewNoteHandler(svc, events, logger),
		rest.NewHealthHandler(BuildVersion(), st.checks),
		limiter.Limit(cfg.RateLimit.LeasePerMinute, cfg.RateLimit.Burst),
	)

	return middleware.Chain(
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	)(router)
}

// openEvents connects the change-event bus. Without a Redis URL events are
// dropped.
func openEvents(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (eventSink, func(), error) {
	if !cfg.Enabled() {
		log.Info("redis not configured, change events disabled")
		return lockevents.Noop{}, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pub := lockevents.New(client,
		lockevents.WithPrefix(cfg.ChannelPrefix),
		lockevents.WithBacklog(cfg.Backlog),
	)
	if err := pub.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return pub, func() { _ = client.Close() }, nil
}
