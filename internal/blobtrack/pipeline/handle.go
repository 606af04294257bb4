package pipeline

import "context"

// Handle tracks a pipeline running on a background goroutine.
type Handle struct {
	done    chan struct{}
	cancel  context.CancelFunc
	summary Summary
	err     error
}

// Start runs the pipeline on its own goroutine. Cancel the handle (or ctx)
// to stop it at the next frame boundary.
func (p *Pipeline) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = p.Run(ctx)
	}()
	return h
}

// Done is closed once the run has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel requests a cooperative stop.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the run returns and reports its outcome.
func (h *Handle) Wait() (Summary, error) {
	<-h.done
	return h.summary, h.err
}
