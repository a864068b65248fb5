// Package bridge relays coordinator events to the UI boundary. The relay is
// a deliberate security boundary: only a fixed set of channel names crosses
// it, so new upstream event names cannot silently turn the bridge into a
// generic pipe.
package bridge

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/inkwell-app/inkwell/internal/chat"
)

// exact channel names allowed across the boundary
var allowedNames = map[string]struct{}{
	"message":         {},
	"error":           {},
	"session-started": {},
}

// approved prefixes; covers stream-start, stream-chunk, stream-end
var allowedPrefixes = []string{"stream-"}

// Allowed reports whether an event name may cross the UI boundary.
func Allowed(name string) bool {
	if _, ok := allowedNames[name]; ok {
		return true
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Sink receives validated, serialized events in forwarding order. Sinks must
// not block for long; delivery happens on the coordinator's turn goroutine.
type Sink interface {
	Deliver(name string, payload json.RawMessage)
}

// Bridge validates event names and fans events out to the subscribed sinks.
// It satisfies chat.Emitter.
type Bridge struct {
	mu    sync.RWMutex
	next  int
	sinks map[int]Sink
}

func New() *Bridge {
	return &Bridge{sinks: make(map[int]Sink)}
}

// Subscribe registers a sink and returns its cancel function.
func (b *Bridge) Subscribe(s Sink) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.sinks[id] = s
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.sinks, id)
		b.mu.Unlock()
	}
}

// Forward relays one named event. Names outside the allow-list are dropped
// and logged, never propagated and never fatal.
func (b *Bridge) Forward(name string, payload any) {
	if !Allowed(name) {
		log.Printf("bridge: dropping event with disallowed channel %q", name)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("bridge: marshal failed channel=%s err=%v", name, err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.sinks {
		s.Deliver(name, body)
	}
}

// Emit implements chat.Emitter.
func (b *Bridge) Emit(ev chat.Event) {
	b.Forward(ev.Name(), ev)
}
