package runlock

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// LocalLocker is an in-process Locker. It fails fast instead of waiting.
type LocalLocker struct {
	held *xsync.Map[string, struct{}]
}

var _ Locker = (*LocalLocker)(nil)

// NewLocal creates an in-process locker
func NewLocal() *LocalLocker {
	return &LocalLocker{held: xsync.NewMap[string, struct{}]()}
}

// Acquire takes the lock on key or returns ErrRunInProgress
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, loaded := l.held.LoadOrStore(key, struct{}{}); loaded {
		return nil, ErrRunInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.held.Delete(key) })
	}, nil
}

// Held reports whether key is currently locked
func (l *LocalLocker) Held(key string) bool {
	_, ok := l.held.Load(key)
	return ok
}
