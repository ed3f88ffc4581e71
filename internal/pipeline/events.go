package pipeline

import (
	"fmt"
	"sync"
)

// Lifecycle event names published by the engine.
const (
	EventTranslationStarted   = "translation.started"
	EventTranslationCompleted = "translation.completed"
	EventTranslationFailed    = "translation.failed"
)

// StageStartedEvent returns the event name published when a stage begins.
func StageStartedEvent(stage string) string {
	return "stage." + stage + ".started"
}

// StageCompletedEvent returns the event name published when a stage finishes.
func StageCompletedEvent(stage string) string {
	return "stage." + stage + ".completed"
}

// Event carries a lifecycle notification to observers. Err is set only for
// translation.failed.
type Event struct {
	Name    string
	Context *Context
	Err     error
}

// Observer receives events. Observers are side-effect only and must not
// assume any control over the run.
type Observer func(Event)

// Bus is the engine's publish/subscribe surface. Subscribers for an exact
// event name are invoked in subscription order.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]Observer
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Observer)}
}

// Subscribe registers fn for the exact event name.
func (b *Bus) Subscribe(name string, fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], fn)
}

// Publish delivers the event to all subscribers of its name, in subscription
// order. A panicking observer is recorded as a warning on the context and
// never disturbs the run.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	observers := append([]Observer(nil), b.subs[ev.Name]...)
	b.mu.Unlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil && ev.Context != nil {
					ev.Context.AddWarning(fmt.Sprintf("observer for %s panicked: %v", ev.Name, r))
				}
			}()
			fn(ev)
		}()
	}
}
