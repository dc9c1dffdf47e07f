// Package globaltime provides the process clock. Production code reads it
// through Now/UTC so tests can freeze time deterministically.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock to a fixed instant until Reset is called.
func Freeze(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func Reset() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
