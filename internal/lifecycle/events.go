package lifecycle

import (
	"sync"
	"time"
)

// Event represents a controller lifecycle event.
// Minimal and stable: name + pid and optional fields via key/values.
type Event struct {
	Name   string
	PID    int
	Fields map[string]any
}

// Event names published by the controller.
const (
	EventSpawnStart   = "spawn_start"
	EventSpawnReady   = "spawn_ready"
	EventSpawnTimeout = "spawn_timeout"
	EventSpawnError   = "spawn_error"
	EventSpawnExit    = "spawn_exit"
	EventStop         = "stop"
	EventConfigSent   = "config_sent"
	EventConfigError  = "config_error"
)

// EventPublisher receives events from the controller. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// DefaultEventLogSize is the capacity NewEventLog uses for non-positive sizes.
const DefaultEventLogSize = 128

// Record is an event together with the time it was logged.
type Record struct {
	Event
	At time.Time
}

// EventLog keeps the most recent events in a fixed-size ring and a running
// count per event name. Counts include events already evicted from the ring.
type EventLog struct {
	mu     sync.Mutex
	ring   []Record
	next   int
	full   bool
	counts map[string]int
	now    func() time.Time
}

// NewEventLog returns an EventLog retaining the last capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogSize
	}
	return &EventLog{
		ring:   make([]Record, capacity),
		counts: make(map[string]int),
		now:    time.Now,
	}
}

func (l *EventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = Record{Event: e, At: l.now()}
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.full = true
	}
	l.counts[e.Name]++
}

// Recent returns the retained records, oldest first.
func (l *EventLog) Recent() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Record(nil), l.ring[:l.next]...)
	}
	out := make([]Record, 0, len(l.ring))
	out = append(out, l.ring[l.next:]...)
	return append(out, l.ring[:l.next]...)
}

// Events returns the retained events, oldest first.
func (l *EventLog) Events() []Event {
	recs := l.Recent()
	out := make([]Event, len(recs))
	for i, r := range recs {
		out[i] = r.Event
	}
	return out
}

// Count returns how many events with the given name were ever published.
func (l *EventLog) Count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[name]
}

// multiPublisher fans an event out to several publishers.
type multiPublisher []EventPublisher

func (m multiPublisher) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}

// MultiPublisher returns a publisher that forwards to every non-nil p.
func MultiPublisher(ps ...EventPublisher) EventPublisher {
	out := make(multiPublisher, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
