package orchestrator

import "context"

// Limiter is a bounded counting gate capping how many workers run at once.
// It makes no fairness promise beyond every waiter eventually being admitted.
type Limiter chan struct{}

// NewLimiter creates a Limiter with capacity n, coerced to at least 1.
func NewLimiter(n int) Limiter {
	if n < 1 {
		n = 1
	}
	return make(Limiter, n)
}

// Acquire blocks until a slot is free or ctx is done.
func (l Limiter) Acquire(ctx context.Context) error {
	// Stop admitting new work promptly once the run is interrupted, even
	// if a slot happens to be free.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. It must be called exactly once per successful
// Acquire, on every exit path.
func (l Limiter) Release() {
	<-l
}
