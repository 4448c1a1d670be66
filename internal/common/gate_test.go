package common

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAllowsConcurrentCycles(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	var active int32
	var peak int32

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.EnterCycle()
			defer g.LeaveCycle()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestGateExclusiveBlocksCycles(t *testing.T) {
	g := NewGate()

	var inExclusive atomic.Bool
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		g.Exclusive(func() error {
			inExclusive.Store(true)
			close(started)
			<-release
			inExclusive.Store(false)
			return nil
		})
	}()

	<-started

	cycleDone := make(chan struct{})
	go func() {
		defer close(cycleDone)
		g.EnterCycle()
		defer g.LeaveCycle()
		// Must only run after the exclusive section released the gate.
		assert.False(t, inExclusive.Load())
	}()

	close(release)
	<-done
	<-cycleDone
}

func TestGateExclusivePropagatesError(t *testing.T) {
	g := NewGate()
	sentinel := errors.New("restore failed")

	err := g.Exclusive(func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	// The gate is usable again after a failed exclusive section.
	require.NoError(t, g.Exclusive(func() error { return nil }))
}

func TestWrapError(t *testing.T) {
	err := WrapError("upsert", "pix_keys", ErrStoreUnavailable)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "upsert")
	assert.Contains(t, err.Error(), "pix_keys")
}
