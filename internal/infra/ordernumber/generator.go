// Package ordernumber issues human-readable order numbers of the form ORD-<unixMillis>-<nnn>.
package ordernumber

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"storefront/internal/domain/service"
)

const (
	prefix        = "ORD"
	suffixesPerMs = 1000
)

// Generator draws a random three-digit suffix per millisecond and never repeats a
// suffix within the same millisecond. When a millisecond is exhausted it moves on to the next.
type Generator struct {
	mu     sync.Mutex
	now    func() time.Time
	intn   func(n int) int
	lastMs int64
	used   map[int]struct{}
}

// New returns a generator backed by the wall clock.
func New() service.OrderNumberGenerator {
	return newGenerator(time.Now, rand.IntN)
}

func newGenerator(now func() time.Time, intn func(int) int) *Generator {
	return &Generator{now: now, intn: intn, used: make(map[int]struct{}, 8)}
}

// Next returns a number that is unique within this process.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms < g.lastMs {
		// Clock stepped back; keep issuing from the latest millisecond seen.
		ms = g.lastMs
	}

	if ms != g.lastMs {
		g.lastMs = ms
		clear(g.used)
	}

	if len(g.used) == suffixesPerMs {
		g.lastMs++
		clear(g.used)
	}

	suffix := g.intn(suffixesPerMs)
	for {
		if _, taken := g.used[suffix]; !taken {
			break
		}
		suffix = (suffix + 1) % suffixesPerMs
	}
	g.used[suffix] = struct{}{}

	return fmt.Sprintf("%s-%d-%03d", prefix, g.lastMs, suffix)
}
