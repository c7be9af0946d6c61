package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManagerSerializesWriters(t *testing.T) {
	lm := NewLockManager()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lm.ExecuteWithPlanLock("plan-1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 1, lm.LockCount())
}

func TestLockManagerCleanup(t *testing.T) {
	lm := NewLockManager()
	lm.maxLocks = 1

	require.NoError(t, lm.ExecuteWithPlanReadLock("a", func() error { return nil }))
	require.NoError(t, lm.ExecuteWithPlanReadLock("b", func() error { return nil }))

	assert.Equal(t, 0, lm.cleanupUnusedLocks(time.Now()))
	assert.Equal(t, 2, lm.cleanupUnusedLocks(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, lm.LockCount())
}
