package provider

import (
	"context"
	"encoding/json"
	"sync"
)

// Event names pushed by wallet transports, matching the EIP-1193 names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Transport is the wire half of an EIP-1193 provider: a request/response
// call plus event notifications. Implementations shape requests only; all
// policy lives in the Gateway.
type Transport interface {
	// Request performs one provider call and returns the raw JSON result.
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Subscribe registers fn for an event and returns an unsubscribe func.
	// Unsubscribing is idempotent; calling the returned func more than once
	// is harmless.
	Subscribe(event string, fn func(payload json.RawMessage)) (unsubscribe func())
}

// SelectedAddresser is implemented by transports that cache the active
// account, letting the session reconcile on startup without any provider
// round-trip.
type SelectedAddresser interface {
	SelectedAddress() string
}

// listenerSet is the shared subscription bookkeeping used by transports.
// The zero value is ready to use.
type listenerSet struct {
	mu     sync.Mutex
	nextID int
	fns    map[string]map[int]func(json.RawMessage)
}

func (l *listenerSet) subscribe(event string, fn func(json.RawMessage)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[string]map[int]func(json.RawMessage))
	}
	if l.fns[event] == nil {
		l.fns[event] = make(map[int]func(json.RawMessage))
	}

	id := l.nextID
	l.nextID++
	l.fns[event][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns[event], id)
		})
	}
}

// emit delivers payload to every listener registered for event. Listeners
// run outside the lock so a callback may subscribe or unsubscribe.
func (l *listenerSet) emit(event string, payload json.RawMessage) {
	l.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(l.fns[event]))
	for _, fn := range l.fns[event] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}
