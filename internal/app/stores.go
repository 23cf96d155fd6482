package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/campaign-notes/internal/adapter/memory"
	"github.com/heartmarshall/campaign-notes/internal/adapter/postgres"
	auditrepo "github.com/heartmarshall/campaign-notes/internal/adapter/postgres/audit"
	noterepo "github.com/heartmarshall/campaign-notes/internal/adapter/postgres/note"
	versionrepo "github.com/heartmarshall/campaign-notes/internal/adapter/postgres/noteversion"
	"github.com/heartmarshall/campaign-notes/internal/config"
	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/transport/rest"
	"github.com/heartmarshall/campaign-notes/migrations"
)

type noteStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	List(ctx context.Context, f domain.NoteFilter) ([]*domain.Note, error)
	Create(ctx context.Context, n *domain.Note) (*domain.Note, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.NoteUpdate) (*domain.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AcquireLock(ctx context.Context, id, holder uuid.UUID, now time.Time, ttl time.Duration) (bool, error)
	RenewLock(ctx context.Context, id, holder uuid.UUID, now time.Time) (bool, error)
	ReleaseLock(ctx context.Context, id, holder uuid.UUID) (bool, error)
	ClearLock(ctx context.Context, id uuid.UUID) error
}

type versionStore interface {
	Insert(ctx context.Context, v domain.NoteVersion) (*domain.NoteVersion, error)
	EvictBeyond(ctx context.Context, noteID uuid.UUID, keep int) (int64, error)
	Count(ctx context.Context, noteID uuid.UUID) (int, error)
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.NoteVersion, error)
}

type auditStore interface {
	Log(ctx context.Context, record domain.AuditRecord) error
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores is the storage backend selected by config.
type stores struct {
	notes    noteStore
	versions versionStore
	audit    auditStore
	tx       txRunner
	checks   map[string]rest.Pinger
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Server.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memoryStores(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &stores{
		notes:    noterepo.New(pool),
		versions: versionrepo.New(pool),
		audit:    auditrepo.New(pool),
		tx:       postgres.NewTxManager(pool),
		checks:   map[string]rest.Pinger{"database": pool},
		close:    pool.Close,
	}, nil
}

func memoryStores() *stores {
	store := memory.NewStore()
	return &stores{
		notes:    store.Notes(),
		versions: store.Versions(),
		audit:    store.Audit(),
		tx:       store,
		checks:   map[string]rest.Pinger{},
		close:    func() {},
	}
}

// migrate applies pending goose migrations through a database/sql view of
// the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}
