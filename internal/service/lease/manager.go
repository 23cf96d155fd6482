// Package lease grants, renews and releases the single-writer lease on a
// note. Expiry is never stored: a lease is active only while
// now - lockedAt < ttl on the manager's clock.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

var (
	// ErrHeld means another caller holds an unexpired lease.
	ErrHeld = errors.New("lease held by another caller")
	// ErrNotHolder means the caller tried to renew or release a lease that
	// another caller holds.
	ErrNotHolder = errors.New("lease not held by caller")
	// ErrInsufficientRole means a force release was attempted without the
	// campaign owner role.
	ErrInsufficientRole = errors.New("force release requires campaign owner")
)

type noteStore interface {
	AcquireLock(ctx context.Context, id, holder uuid.UUID, now time.Time, ttl time.Duration) (bool, error)
	RenewLock(ctx context.Context, id, holder uuid.UUID, now time.Time) (bool, error)
	ReleaseLock(ctx context.Context, id, holder uuid.UUID) (bool, error)
	ClearLock(ctx context.Context, id uuid.UUID) error
}

// Manager coordinates lease state through conditional writes on the note row.
type Manager struct {
	notes noteStore
	clock clockwork.Clock
	ttl   time.Duration
}

// NewManager creates a lease manager with the given lease duration.
func NewManager(notes noteStore, clock clockwork.Clock, ttl time.Duration) *Manager {
	return &Manager{notes: notes, clock: clock, ttl: ttl}
}

// TTL returns the lease duration.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Now returns the current time on the authority clock.
func (m *Manager) Now() time.Time { return m.clock.Now() }

// Acquire takes the lease for caller. It succeeds when the note is unlocked,
// the stored lease expired, or caller already holds it.
func (m *Manager) Acquire(ctx context.Context, noteID, caller uuid.UUID) error {
	ok, err := m.notes.AcquireLock(ctx, noteID, caller, m.clock.Now(), m.ttl)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Heartbeat renews caller's lease. A lapsed lease of caller that nobody
// else took is silently re-acquired. A note that is unlocked, released or
// held by someone else is left untouched and yields ErrNotHolder.
func (m *Manager) Heartbeat(ctx context.Context, noteID, caller uuid.UUID) error {
	ok, err := m.notes.RenewLock(ctx, noteID, caller, m.clock.Now())
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	if !ok {
		return ErrNotHolder
	}
	return nil
}

// Release clears caller's lease. Releasing when no lease is active is a
// no-op; releasing another caller's active lease fails with ErrNotHolder.
// n is the note as read before the call.
func (m *Manager) Release(ctx context.Context, n *domain.Note, caller uuid.UUID) error {
	ok, err := m.notes.ReleaseLock(ctx, n.ID, caller)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if ok {
		return nil
	}
	if m.IsActive(n) && !m.IsHeldBy(n, caller) {
		return ErrNotHolder
	}
	return nil
}

// ForceRelease clears any lease on the note. Only campaign owners may do it.
func (m *Manager) ForceRelease(ctx context.Context, noteID uuid.UUID, role domain.CampaignRole) error {
	if role != domain.CampaignRoleOwner {
		return ErrInsufficientRole
	}
	if err := m.notes.ClearLock(ctx, noteID); err != nil {
		return fmt.Errorf("force release lease: %w", err)
	}
	return nil
}

// IsActive reports whether n carries an unexpired lease.
func (m *Manager) IsActive(n *domain.Note) bool {
	if n.LockedBy == nil || n.LockedAt == nil {
		return false
	}
	return m.clock.Now().Sub(*n.LockedAt) < m.ttl
}

// IsHeldBy reports whether userID holds an unexpired lease on n.
func (m *Manager) IsHeldBy(n *domain.Note, userID uuid.UUID) bool {
	return m.IsActive(n) && *n.LockedBy == userID
}

// BlocksWriter reports whether an active lease of someone other than userID
// exists on n.
func (m *Manager) BlocksWriter(n *domain.Note, userID uuid.UUID) bool {
	return m.IsActive(n) && *n.LockedBy != userID
}

// Info derives the lease state of n as seen by caller.
func (m *Manager) Info(n *domain.Note, caller uuid.UUID) domain.LockInfo {
	if !m.IsActive(n) {
		return domain.LockInfo{}
	}
	holder := *n.LockedBy
	expires := n.LockedAt.Add(m.ttl)
	return domain.LockInfo{
		Active:       true,
		HeldBy:       &holder,
		ExpiresAt:    &expires,
		HeldByCaller: holder == caller,
	}
}
