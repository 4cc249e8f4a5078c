package service

import "sync"

// Overlay hides entries that were removed locally while the remote
// mutation is in flight. An entry stays hidden until the topic is
// republished at a newer version than the one it was hidden against, at
// which point the authoritative snapshot decides. Restore undoes a hide
// right away when the remote mutation failed.
type Overlay struct {
	mu     sync.Mutex
	hidden map[string]uint64
}

func NewOverlay() *Overlay {
	return &Overlay{hidden: make(map[string]uint64)}
}

// Hide removes key from listings built at version.
func (o *Overlay) Hide(key string, version uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hidden[key] = version
}

func (o *Overlay) Restore(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.hidden, key)
}

// Hidden reports whether key should be left out of a listing built at
// version, forgetting hides that a newer snapshot superseded.
func (o *Overlay) Hidden(key string, version uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	at, ok := o.hidden[key]
	if !ok {
		return false
	}
	if version > at {
		delete(o.hidden, key)
		return false
	}
	return true
}
