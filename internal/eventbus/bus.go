package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventAction carries a mutation issued to the browser.
	EventAction EventType = "action"
	// EventSettings carries settings that changed on disk.
	EventSettings EventType = "settings"
)

// Event is a host-side event delivered to observers.
type Event struct {
	Type     EventType           `json:"type"`
	Action   *schema.ActionEvent `json:"action,omitempty"`
	Settings *schema.Settings    `json:"settings,omitempty"`
}

// AllWindows subscribes to events of every window.
const AllWindows = schema.WindowNone

// Bus fanouts events to per-window subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.WindowID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.WindowID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for a window (or AllWindows) and returns a
// channel + cancel.
func (b *Bus) Subscribe(windowID schema.WindowID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	windowSubs := b.subs[windowID]
	if windowSubs == nil {
		windowSubs = make(map[chan Event]struct{})
		b.subs[windowID] = windowSubs
	}
	windowSubs[ch] = struct{}{}
	count := len(windowSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("window", int(windowID)).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[windowID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, windowID)
				}
			}
			close(ch)
			b.mu.Unlock()
			if b.log != nil {
				b.log.With("window", int(windowID)).Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnAction publishes an action event.
func (b *Bus) OnAction(event schema.ActionEvent) {
	b.publish(event.WindowID, Event{Type: EventAction, Action: &event})
}

// OnSettings publishes changed settings to every subscriber.
func (b *Bus) OnSettings(settings schema.Settings) {
	b.publish(AllWindows, Event{Type: EventSettings, Settings: &settings})
}

func (b *Bus) publish(windowID schema.WindowID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	deliver := func(subs map[chan Event]struct{}) {
		for sub := range subs {
			select {
			case sub <- event:
			default:
				dropped++
			}
		}
	}
	deliver(b.subs[AllWindows])
	if windowID != AllWindows {
		deliver(b.subs[windowID])
	}
	if dropped > 0 && b.log != nil {
		b.log.With("window", int(windowID)).Trace("eventbus dropped", "count", dropped)
	}
}
