// events/events.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package events

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/rotorlab/copternav/log"
)

type EventType int

const (
	// StatusTextEvent carries operator-facing status text.
	StatusTextEvent EventType = iota
	// ItemReachedEvent reports completion of a mission item.
	ItemReachedEvent
	// SubmodeChangeEvent records submode entry/exit.
	SubmodeChangeEvent
	// ModeChangeEvent records entry/exit of the auto-RTL presentation state.
	ModeChangeEvent
	// InternalErrorEvent reports a should-never-happen branch; execution
	// continues in a degraded state.
	InternalErrorEvent
)

func (t EventType) String() string {
	return [...]string{"StatusText", "ItemReached", "SubmodeChange", "ModeChange", "InternalError"}[t]
}

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	return [...]string{"Info", "Warning", "Critical"}[s]
}

type Event struct {
	Type     EventType
	Severity Severity
	Message  string
	Index    int // mission item index for ItemReachedEvent
}

func (e Event) String() string {
	switch e.Type {
	case ItemReachedEvent:
		return fmt.Sprintf("ItemReached #%d", e.Index)
	default:
		return fmt.Sprintf("%s[%s]: %s", e.Type, e.Severity, e.Message)
	}
}

// Stream provides a basic pub/sub event interface so that the mode can
// post operator text and notifications without knowing who consumes them.
// Post never blocks; subscribers poll with Get.
type Stream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*Subscription]interface{}
	warnedLong    bool
	lg            *log.Logger
}

type Subscription struct {
	stream *Stream
	// offset in the stream's event array up to which the subscriber has
	// consumed events so far.
	offset  int
	source  string
	lastGet time.Time
}

func NewStream(lg *log.Logger) *Stream {
	return &Stream{
		subscriptions: make(map[*Subscription]interface{}),
		lg:            lg,
	}
}

// Subscribe registers a new subscriber; the returned Subscription's Get
// method returns events posted after the Subscribe call.
func (s *Stream) Subscribe() *Subscription {
	// Record the subscriber's callsite to ease debugging subscribers that
	// aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		stream:  s,
		offset:  len(s.events),
		source:  fmt.Sprintf("%s:%d", fn, line),
		lastGet: time.Now(),
	}
	s.subscriptions[sub] = nil
	return sub
}

func (s *Stream) Post(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) > 1000 && !s.warnedLong {
		// It's likely that one of the subscribers is out to lunch if the
		// stream has grown this long.
		s.lg.Warn("Long event stream", slog.Int("length", len(s.events)))
		s.warnedLong = true
	}
	s.events = append(s.events, event)
}

// PostStatus is shorthand for posting operator status text.
func (s *Stream) PostStatus(sev Severity, format string, args ...any) {
	s.Post(Event{Type: StatusTextEvent, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// Get returns the events posted since the last Get call.
func (sub *Subscription) Get() []Event {
	s := sub.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.lastGet = time.Now()
	ev := s.events[sub.offset:]
	sub.offset = len(s.events)

	s.compact()
	return ev
}

func (sub *Subscription) Unsubscribe() {
	s := sub.stream
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, sub)
	s.compact()
}

// compact drops events that all subscribers have seen. Called with mu held.
func (s *Stream) compact() {
	minOffset := len(s.events)
	for sub := range s.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}
	if minOffset > 0 {
		s.events = s.events[minOffset:]
		for sub := range s.subscriptions {
			sub.offset -= minOffset
		}
		s.warnedLong = false
	}
}
