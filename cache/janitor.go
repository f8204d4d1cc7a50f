package cache

import "time"

// StartJanitor begins periodic eager cleanup of expired entries. Calling it
// twice without Stop is a no-op. The goroutine is owned by the engine and
// exits on Stop.
func (e *Engine) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	e.mu.Lock()
	if e.janitorStop != nil {
		e.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	e.janitorStop = stop
	e.janitorDone = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.CleanupExpired()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the janitor, if running, and waits for it to exit. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop := e.janitorStop
	done := e.janitorDone
	e.janitorStop = nil
	e.janitorDone = nil
	e.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
