package pagetext

import "context"

// Outcome is the result of one worker run. Exactly one of Result and Err
// is set.
type Outcome struct {
	Result *ExtractionResult
	Err    error
}

// Success reports whether the run produced an extraction result.
func (o *Outcome) Success() bool {
	return o != nil && o.Result != nil
}

// Succeeded returns a successful Outcome.
func Succeeded(result *ExtractionResult) *Outcome {
	return &Outcome{Result: result}
}

// Failed returns a failed Outcome.
func Failed(err error) *Outcome {
	if err == nil {
		err = Errorf(EINTERNAL, "worker failed without an error")
	}
	return &Outcome{Err: err}
}

// Worker renders one page in an isolated session and extracts its text.
type Worker interface {
	// Run navigates to url, waits for the page to become ready and runs
	// the Extractor inside it. Run never panics and never returns nil;
	// failures are reported through Outcome.Err. Every resource acquired
	// by the run is released before Run returns.
	// Cancelling ctx aborts the run immediately.
	Run(ctx context.Context, url string) *Outcome
}
