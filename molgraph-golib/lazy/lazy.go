package lazy

import "sync"

// Loader defers a load function until the loaded data is first needed, and
// keeps it loaded until Unload. A failed load is not retried; the error is
// returned again until Unload resets the loader.
type Loader struct {
	load   func() error
	unload func()

	mu   sync.RWMutex
	once sync.Once
	err  error
}

// NewLoader builds a Loader around the given load and unload functions.
func NewLoader(load func() error, unload func()) *Loader {
	return &Loader{load: load, unload: unload}
}

// LoadAndLock runs load if it has not run since the last Unload, and holds a
// read lock against Unload. On success the caller must release the lock with
// Unlock; on error the lock is already released.
func (l *Loader) LoadAndLock() error {
	l.mu.RLock()
	held := true
	defer func() {
		// releases the lock when load errors or panics
		if held {
			l.mu.RUnlock()
		}
	}()

	l.once.Do(func() { l.err = l.load() })
	if l.err != nil {
		return l.err
	}
	held = false
	return nil
}

// Unlock releases the lock taken by a successful LoadAndLock.
func (l *Loader) Unlock() {
	l.mu.RUnlock()
}

// Unload releases the loaded data. The next LoadAndLock runs load again.
func (l *Loader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.once = sync.Once{}
	l.err = nil
	l.unload()
}
