package runlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, err := l.Acquire(ctx, ProgramKey("prog-1"))
	require.NoError(t, err)
	assert.True(t, l.Held(ProgramKey("prog-1")))

	_, err = l.Acquire(ctx, ProgramKey("prog-1"))
	assert.ErrorIs(t, err, ErrRunInProgress)

	other, err := l.Acquire(ctx, ProgramKey("prog-2"))
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, l.Held(ProgramKey("prog-1")))

	again, err := l.Acquire(ctx, ProgramKey("prog-1"))
	require.NoError(t, err)
	again()
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal().Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker_OneWinner(t *testing.T) {
	l := NewLocal()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.Acquire(context.Background(), "k"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}
