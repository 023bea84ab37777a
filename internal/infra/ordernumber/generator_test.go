package ordernumber

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{13}-\d{3}$`)

func TestGenerator_Format(t *testing.T) {
	number := New().Next()

	assert.Regexp(t, orderNumberPattern, number)
}

func TestGenerator_UniqueUnderConcurrency(t *testing.T) {
	gen := New()

	const (
		workers   = 16
		perWorker = 250
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				number := gen.Next()
				mu.Lock()
				seen[number] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerator_FrozenClockRollsOver(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	// Always draws the same suffix, forcing the linear probe.
	gen := newGenerator(func() time.Time { return frozen }, func(int) int { return 7 })

	first := gen.Next()
	second := gen.Next()
	assert.Equal(t, "ORD-1700000000000-007", first)
	assert.Equal(t, "ORD-1700000000000-008", second)

	for range suffixesPerMs - 2 {
		gen.Next()
	}

	overflow := gen.Next()
	assert.Equal(t, "ORD-1700000000001-007", overflow)
}

func TestGenerator_ClockStepBack(t *testing.T) {
	current := time.UnixMilli(1700000000500)
	gen := newGenerator(func() time.Time { return current }, func(int) int { return 1 })

	require.Equal(t, "ORD-1700000000500-001", gen.Next())

	current = current.Add(-time.Second)
	assert.Equal(t, "ORD-1700000000500-002", gen.Next())
}
