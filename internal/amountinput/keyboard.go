package amountinput

import "sync"

// KeyboardBroadcaster fans a keyboard-dismiss notification out to registered listeners.
// Platform bridges call Hide; controllers register through OnDidHide.
type KeyboardBroadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
}

// NewKeyboardBroadcaster creates a broadcaster with no listeners.
func NewKeyboardBroadcaster() *KeyboardBroadcaster {
	return &KeyboardBroadcaster{listeners: make(map[int]func())}
}

// OnDidHide registers fn and returns a func that removes it. Removing twice is harmless.
func (b *KeyboardBroadcaster) OnDidHide(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Hide notifies every registered listener.
func (b *KeyboardBroadcaster) Hide() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listeners returns the number of registered listeners.
func (b *KeyboardBroadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
