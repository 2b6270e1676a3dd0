package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// ThreadLocker serializes writers per thread. Locks are created on demand
// and reaped once idle so the map does not grow without bound. Close stops
// the reaper.
type ThreadLocker struct {
	mu    sync.Mutex
	locks map[string]*threadLock

	stop     chan struct{}
	stopOnce sync.Once
}

type threadLock struct {
	ch       chan struct{}
	refs     int
	lastUsed time.Time
}

// NewThreadLocker creates a locker and starts a background reaper that
// drops unreferenced locks idle longer than ttl. cleanupInterval and ttl of
// zero disable reaping.
func NewThreadLocker(cleanupInterval, ttl time.Duration) *ThreadLocker {
	l := &ThreadLocker{
		locks: make(map[string]*threadLock),
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 && ttl > 0 {
		go l.reap(cleanupInterval, ttl)
	}
	return l
}

// Close stops the background reaper. The locker remains usable; Close is
// safe to call more than once.
func (l *ThreadLocker) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Acquire blocks until the thread's lock is held or the context is done.
// The returned release function must be called exactly once.
func (l *ThreadLocker) Acquire(ctx context.Context, threadID string) (func(), error) {
	lock := l.ref(threadID)

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.unref(threadID)
		}, nil
	case <-ctx.Done():
		l.unref(threadID)
		return nil, ctx.Err()
	}
}

// TryAcquire takes the thread's lock without blocking. It returns false if
// another writer holds it.
func (l *ThreadLocker) TryAcquire(threadID string) (func(), bool) {
	lock := l.ref(threadID)

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.unref(threadID)
		}, true
	default:
		l.unref(threadID)
		return nil, false
	}
}

func (l *ThreadLocker) ref(threadID string) *threadLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[threadID]
	if !ok {
		lock = &threadLock{ch: make(chan struct{}, 1)}
		l.locks[threadID] = lock
	}
	lock.refs++
	lock.lastUsed = time.Now()
	return lock
}

func (l *ThreadLocker) unref(threadID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[threadID]; ok {
		lock.refs--
		lock.lastUsed = time.Now()
	}
}

func (l *ThreadLocker) reap(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)
			l.mu.Lock()
			for threadID, lock := range l.locks {
				if lock.refs == 0 && lock.lastUsed.Before(cutoff) {
					delete(l.locks, threadID)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// LockingStore wraps a Store and serializes appends per thread.
type LockingStore struct {
	store  Store
	locker *ThreadLocker
}

// NewLockingStore wraps store with per-thread append serialization.
func NewLockingStore(store Store, locker *ThreadLocker) *LockingStore {
	if locker == nil {
		locker = NewThreadLocker(time.Minute, 5*time.Minute)
	}
	return &LockingStore{store: store, locker: locker}
}

// Close stops the locker's background reaper.
func (s *LockingStore) Close() {
	s.locker.Close()
}

func (s *LockingStore) GetOrCreate(ctx context.Context, cctx *models.ChannelContext) (*models.Conversation, error) {
	return s.store.GetOrCreate(ctx, cctx)
}

func (s *LockingStore) Append(ctx context.Context, threadID string, msg *models.Message) error {
	release, err := s.locker.Acquire(ctx, threadID)
	if err != nil {
		return err
	}
	defer release()
	return s.store.Append(ctx, threadID, msg)
}

func (s *LockingStore) History(ctx context.Context, threadID string, limit int) ([]*models.Message, error) {
	return s.store.History(ctx, threadID, limit)
}

func (s *LockingStore) Touch(ctx context.Context, threadID string, at time.Time) error {
	return s.store.Touch(ctx, threadID, at)
}
