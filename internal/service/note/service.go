package note

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/richtext"
	"github.com/heartmarshall/campaign-notes/internal/service/lease"
	"github.com/heartmarshall/campaign-notes/internal/service/version"
	"github.com/heartmarshall/campaign-notes/pkg/ctxutil"
)

type noteRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	Create(ctx context.Context, n *domain.Note) (*domain.Note, error)
	Update(ctx context.Context, id uuid.UUID, upd domain.NoteUpdate) (*domain.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type leaseManager interface {
	Acquire(ctx context.Context, noteID, caller uuid.UUID) error
	Heartbeat(ctx context.Context, noteID, caller uuid.UUID) error
	Release(ctx context.Context, n *domain.Note, caller uuid.UUID) error
	ForceRelease(ctx context.Context, noteID uuid.UUID, role domain.CampaignRole) error
	IsHeldBy(n *domain.Note, userID uuid.UUID) bool
	BlocksWriter(n *domain.Note, userID uuid.UUID) bool
	Info(n *domain.Note, caller uuid.UUID) domain.LockInfo
}

type versionManager interface {
	Snapshot(ctx context.Context, n *domain.Note, editorID uuid.UUID) (*domain.NoteVersion, error)
	List(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error)
	Get(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteVersion, error)
	Restore(ctx context.Context, n *domain.Note, versionID, editorID uuid.UUID) (*domain.Note, error)
}

type visibilityResolver interface {
	ListMine(ctx context.Context, userID, campaignID uuid.UUID) ([]*domain.Note, error)
	ListCampaignWide(ctx context.Context, userID, campaignID uuid.UUID) ([]*domain.Note, error)
	ListByEntity(ctx context.Context, userID, campaignID, entityID uuid.UUID) ([]*domain.Note, error)
}

type auditLogger interface {
	Log(ctx context.Context, record domain.AuditRecord) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.NoteEvent) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the entry point for all note operations. It validates input,
// applies visibility and lease rules and is the only place where lower
// layer errors are translated into the domain error taxonomy.
type Service struct {
	notes    noteRepo
	leases   leaseManager
	versions versionManager
	visible  visibilityResolver
	audit    auditLogger
	events   eventPublisher
	tx       txManager
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewService creates a new Note service.
func NewService(
	log *slog.Logger,
	clock clockwork.Clock,
	notes noteRepo,
	leases leaseManager,
	versions versionManager,
	visible visibilityResolver,
	audit auditLogger,
	events eventPublisher,
	tx txManager,
) *Service {
	return &Service{
		notes:    notes,
		leases:   leases,
		versions: versions,
		visible:  visible,
		audit:    audit,
		events:   events,
		tx:       tx,
		clock:    clock,
		log:      log.With("service", "note"),
	}
}

// caller is the identity resolved upstream for the current request.
type caller struct {
	UserID     uuid.UUID
	CampaignID uuid.UUID
	Role       domain.CampaignRole
}

func callerFromCtx(ctx context.Context) (caller, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return caller{}, domain.ErrUnauthorized
	}
	campaignID, ok := ctxutil.CampaignIDFromCtx(ctx)
	if !ok {
		return caller{}, domain.ErrUnauthorized
	}
	return caller{
		UserID:     userID,
		CampaignID: campaignID,
		Role:       domain.CampaignRole(ctxutil.RoleFromCtx(ctx)),
	}, nil
}

func (c caller) attrs(noteID uuid.UUID) []any {
	return []any{
		slog.String("note_id", noteID.String()),
		slog.String("user_id", c.UserID.String()),
		slog.String("campaign_id", c.CampaignID.String()),
	}
}

func (s *Service) view(n *domain.Note, userID uuid.UUID) *domain.NoteView {
	return &domain.NoteView{Note: *n, Lock: s.leases.Info(n, userID)}
}

// publish sends an event after commit. Failures are logged, never returned.
func (s *Service) publish(ctx context.Context, typ domain.NoteEventType, n *domain.Note, actor uuid.UUID, holder *uuid.UUID) {
	ev := domain.NoteEvent{
		Type:       typ,
		NoteID:     n.ID,
		CampaignID: n.CampaignID,
		ActorID:    actor,
		HolderID:   holder,
		At:         s.clock.Now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish note event",
			slog.String("type", string(typ)),
			slog.String("note_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// translate maps manager and store errors into the domain taxonomy.
func translate(err error, noteID uuid.UUID) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lease.ErrHeld):
		return fmt.Errorf("note %s: %w: %w", noteID, domain.ErrConflict, err)
	case errors.Is(err, lease.ErrNotHolder), errors.Is(err, lease.ErrInsufficientRole):
		return fmt.Errorf("note %s: %w: %w", noteID, domain.ErrForbidden, err)
	case errors.Is(err, version.ErrVersionNotFound):
		return fmt.Errorf("note %s: %w", noteID, domain.ErrNotFound)
	}
	return err
}

// renderRichDocument parses and renders a client document. A nil or
// "null" document yields nil for both results.
func renderRichDocument(doc json.RawMessage) (json.RawMessage, *string, error) {
	if isNullDocument(doc) {
		return nil, nil, nil
	}
	html, err := richtext.Render(doc)
	if err != nil {
		return nil, nil, domain.NewValidationError("richDocument", "malformed document")
	}
	return doc, &html, nil
}

func isNullDocument(doc json.RawMessage) bool {
	trimmed := bytes.TrimSpace(doc)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
