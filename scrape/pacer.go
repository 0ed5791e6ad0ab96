package scrape

import (
	"context"
	"strings"
	"sync"

	"github.com/fwojciec/pagetext"
	"golang.org/x/time/rate"
)

var _ pagetext.DomainLimiter = (*HostPacer)(nil)

// HostPacer spaces out scrapes that target the same host. Each host has a
// single-token bucket refilled at the configured rate; hosts never wait on
// each other. Host names are compared case-insensitively.
type HostPacer struct {
	every rate.Limit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewHostPacer returns a pacer allowing perSecond scrapes of each host.
// Zero or less turns pacing off.
func NewHostPacer(perSecond float64) *HostPacer {
	return &HostPacer{
		every:   rate.Limit(perSecond),
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wait returns once host may be scraped again, or with ctx's error.
func (p *HostPacer) Wait(ctx context.Context, host string) error {
	if p == nil || p.every <= 0 {
		return ctx.Err()
	}
	return p.bucket(host).Wait(ctx)
}

// Hosts returns the number of hosts seen so far.
func (p *HostPacer) Hosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}

func (p *HostPacer) bucket(host string) *rate.Limiter {
	key := strings.ToLower(host)

	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[key]
	if !ok {
		b = rate.NewLimiter(p.every, 1)
		p.buckets[key] = b
	}
	return b
}
