package repositories

import (
	"context"

	"github.com/google/uuid"
)

// Lease is a held per-meeting execution lock
type Lease interface {
	MeetingID() uuid.UUID
	Release(ctx context.Context) error
}

// ExecutionLocker hands out at most one Lease per meeting at a time.
// TryLock never waits: it returns entities.ErrPipelineBusy when the lease is held.
type ExecutionLocker interface {
	TryLock(ctx context.Context, meetingID uuid.UUID) (Lease, error)
}
