package zerolog

import (
	"context"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/rs/zerolog"
)

// Ensure LoggingWorker implements pagetext.Worker.
var _ pagetext.Worker = (*LoggingWorker)(nil)

// LoggingWorker wraps a Worker with logging.
type LoggingWorker struct {
	next   pagetext.Worker
	logger zerolog.Logger
}

// NewLoggingWorker creates a new LoggingWorker.
func NewLoggingWorker(next pagetext.Worker, logger zerolog.Logger) *LoggingWorker {
	return &LoggingWorker{next: next, logger: logger}
}

// Run logs the URL being scraped and delegates to the wrapped worker.
func (w *LoggingWorker) Run(ctx context.Context, url string) (out *pagetext.Outcome) {
	defer func(begin time.Time) {
		if out.Success() {
			w.logger.Info().
				Str("url", url).
				Int("items", len(out.Result.Content)).
				Dur("duration", time.Since(begin)).
				Msg("scrape")
			return
		}
		var err error
		if out != nil {
			err = out.Err
		}
		w.logger.Warn().
			Str("url", url).
			Str("code", pagetext.ErrorCode(err)).
			Dur("duration", time.Since(begin)).
			Err(err).
			Msg("scrape")
	}(time.Now())
	return w.next.Run(ctx, url)
}
