package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_StartsAtEpoch(t *testing.T) {
	clock := NewStepClock(time.Millisecond)
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_AdvancesPerRead(t *testing.T) {
	clock := NewStepClock(time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, time.Millisecond, second.Sub(first))
	assert.Equal(t, time.Millisecond, third.Sub(second))
}

func TestStepClock_FrozenWithZeroStep(t *testing.T) {
	clock := NewStepClock(0)

	assert.Equal(t, clock.Now(), clock.Now())

	clock.Advance(5 * time.Second)
	assert.Equal(t, Epoch.Add(5*time.Second), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ConcurrentReads(t *testing.T) {
	clock := NewStepClock(time.Nanosecond)

	const goroutines = 10
	const reads = 100

	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines*reads)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < reads; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*reads, "every read should return a distinct instant")
}
