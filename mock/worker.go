package mock

import (
	"context"

	"github.com/fwojciec/pagetext"
)

var _ pagetext.Worker = (*Worker)(nil)

// Worker is a mock implementation of pagetext.Worker.
type Worker struct {
	RunFn func(ctx context.Context, url string) *pagetext.Outcome
}

func (w *Worker) Run(ctx context.Context, url string) *pagetext.Outcome {
	return w.RunFn(ctx, url)
}
