package shutdown

import (
	"context"
	"sync"
)

// Fake is a test double that counts shutdown requests instead of powering
// off.
type Fake struct {
	mu    sync.Mutex
	calls int

	// Err, if set, is returned by Shutdown.
	Err error
}

func (f *Fake) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.Err
}

// Calls returns how many times Shutdown was called.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
