// Package identity wraps the external auth provider: sign-in, sign-out and
// observation of the signed-in identity.
package identity

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrInvalidCredential = errors.New("invalid credential")

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
	Email       string `json:"email"`
}

// Gateway is the contract the session controller depends on.
type Gateway interface {
	SignIn(ctx context.Context, credential string) (*Identity, error)
	SignOut(ctx context.Context) error
	// Observe calls fn with the current identity (nil when signed out) right
	// away and then on every change, until the returned func is called.
	Observe(fn func(*Identity)) (unsubscribe func())
	Current() *Identity
}

// hub holds the current identity and fans changes out to observers in
// registration order. deliver serializes publishes with their callbacks, so
// observers see events in the order current changed. Observers must not
// publish from inside a callback.
type hub struct {
	deliver sync.Mutex

	mu        sync.Mutex
	current   *Identity
	nextID    int
	observers map[int]func(*Identity)
}

func clone(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func (h *hub) Current() *Identity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.current)
}

func (h *hub) Observe(fn func(*Identity)) func() {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.observers == nil {
		h.observers = make(map[int]func(*Identity))
	}
	key := h.nextID
	h.nextID++
	h.observers[key] = fn
	cur := clone(h.current)
	h.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers, key)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(id *Identity) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.current = clone(id)
	keys := make([]int, 0, len(h.observers))
	for k := range h.observers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fns := make([]func(*Identity), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, h.observers[k])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(clone(id))
	}
}

func (h *hub) SignOut(_ context.Context) error {
	h.publish(nil)
	return nil
}
