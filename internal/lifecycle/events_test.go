package lifecycle

import (
	"testing"
	"time"
)

func TestEventLogKeepsMostRecent(t *testing.T) {
	l := NewEventLog(3)
	base := time.Unix(1700000000, 0)
	tick := 0
	l.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	for pid := 1; pid <= 5; pid++ {
		l.Publish(Event{Name: EventSpawnStart, PID: pid})
	}
	l.Publish(Event{Name: EventStop, PID: 5})

	recs := l.Recent()
	if len(recs) != 3 {
		t.Fatalf("want 3 retained records, got %d", len(recs))
	}
	wantPIDs := []int{4, 5, 5}
	for i, r := range recs {
		if r.PID != wantPIDs[i] {
			t.Fatalf("record %d: want pid %d, got %+v", i, wantPIDs[i], r)
		}
		if i > 0 && !r.At.After(recs[i-1].At) {
			t.Fatalf("records out of order: %+v", recs)
		}
	}
	if recs[2].Name != EventStop {
		t.Fatalf("newest record should be the stop event, got %q", recs[2].Name)
	}
	if got := l.Count(EventSpawnStart); got != 5 {
		t.Fatalf("count must include evicted events: want 5, got %d", got)
	}
	if got := l.Count(EventSpawnReady); got != 0 {
		t.Fatalf("want 0 spawn_ready, got %d", got)
	}
}

func TestEventLogBeforeWrap(t *testing.T) {
	l := NewEventLog(0)
	if len(l.Recent()) != 0 {
		t.Fatalf("new log should be empty")
	}
	l.Publish(Event{Name: EventConfigSent})
	l.Publish(Event{Name: EventConfigError})
	evs := l.Events()
	if len(evs) != 2 || evs[0].Name != EventConfigSent || evs[1].Name != EventConfigError {
		t.Fatalf("unexpected events %+v", evs)
	}
	evs[0].Name = "mutated"
	if l.Events()[0].Name != EventConfigSent {
		t.Fatalf("Events must return a copy")
	}
}

func TestMultiPublisherSkipsNil(t *testing.T) {
	a, b := NewEventLog(4), NewEventLog(4)
	p := MultiPublisher(a, nil, b)
	p.Publish(Event{Name: EventSpawnExit, PID: 7})
	if a.Count(EventSpawnExit) != 1 || b.Count(EventSpawnExit) != 1 {
		t.Fatalf("event not fanned out: a=%+v b=%+v", a.Events(), b.Events())
	}
}
