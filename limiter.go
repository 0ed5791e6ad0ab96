package pagetext

import "context"

// DomainLimiter paces work per target host.
type DomainLimiter interface {
	// Wait blocks until a request to domain is allowed or ctx is done.
	Wait(ctx context.Context, domain string) error
}
