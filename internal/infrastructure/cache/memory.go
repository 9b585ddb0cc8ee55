package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// MemoryLocker is the in-process lock arena: one lease per meeting id.
// Entries carry an expiry that the holder keeps pushing forward, so a lease
// whose holder stopped refreshing can be taken over.
type MemoryLocker struct {
	mu    sync.Mutex
	items map[uuid.UUID]*memoryItem
	ttl   time.Duration
}

type memoryItem struct {
	token      string
	expireTime time.Time
}

// NewMemoryLocker creates an in-memory lock arena
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryLocker{
		items: make(map[uuid.UUID]*memoryItem),
		ttl:   ttl,
	}
}

var _ repositories.ExecutionLocker = (*MemoryLocker)(nil)

// TryLock acquires the meeting lease or returns entities.ErrPipelineBusy immediately
func (ml *MemoryLocker) TryLock(ctx context.Context, meetingID uuid.UUID) (repositories.Lease, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := time.Now()
	if item, exists := ml.items[meetingID]; exists && now.Before(item.expireTime) {
		return nil, entities.ErrPipelineBusy
	}

	token := uuid.NewString()
	ml.items[meetingID] = &memoryItem{token: token, expireTime: now.Add(ml.ttl)}

	l := &memoryLease{
		locker:    ml,
		meetingID: meetingID,
		token:     token,
		stop:      make(chan struct{}),
	}
	go l.keepAlive(ml.ttl / 3)
	return l, nil
}

// Held reports whether a live lease exists for the meeting
func (ml *MemoryLocker) Held(meetingID uuid.UUID) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	item, exists := ml.items[meetingID]
	return exists && time.Now().Before(item.expireTime)
}

func (ml *MemoryLocker) extend(meetingID uuid.UUID, token string) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	item, exists := ml.items[meetingID]
	if !exists || item.token != token {
		return false
	}
	item.expireTime = time.Now().Add(ml.ttl)
	return true
}

func (ml *MemoryLocker) remove(meetingID uuid.UUID, token string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if item, exists := ml.items[meetingID]; exists && item.token == token {
		delete(ml.items, meetingID)
	}
}

type memoryLease struct {
	locker    *MemoryLocker
	meetingID uuid.UUID
	token     string
	once      sync.Once
	stop      chan struct{}
}

func (l *memoryLease) MeetingID() uuid.UUID { return l.meetingID }

// Release frees the lease. Releasing twice is a no-op.
func (l *memoryLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		close(l.stop)
		l.locker.remove(l.meetingID, l.token)
	})
	return nil
}

func (l *memoryLease) keepAlive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !l.locker.extend(l.meetingID, l.token) {
				return
			}
		}
	}
}
