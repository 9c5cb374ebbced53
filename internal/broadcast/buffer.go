package broadcast

import (
	"strconv"
	"sync"
	"time"
)

// StreamEvent is the SSE wire form of an Event: a monotonically
// increasing EventID for Last-Event-ID resume plus a server timestamp
// in milliseconds.
type StreamEvent struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	ServerTS  int64  `json:"server_ts"`
	Data      any    `json:"data"`
}

const subscriberBuffer = 32

// EventBuffer keeps a bounded replay window of recent events and fans
// them out to live subscribers. A slow subscriber loses events instead
// of stalling the producer.
type EventBuffer struct {
	mu     sync.Mutex
	seq    int64
	max    int
	window []StreamEvent
	subs   map[chan StreamEvent]struct{}
	closed bool
}

func NewEventBuffer(max int) *EventBuffer {
	if max <= 0 {
		max = 500
	}
	return &EventBuffer{
		max:  max,
		subs: map[chan StreamEvent]struct{}{},
	}
}

// Publish lets the buffer sit directly in the arena's publisher fanout.
func (b *EventBuffer) Publish(ev Event) {
	b.Append(ev.Type, ev.SessionID, ev.Data)
}

func (b *EventBuffer) Append(event, sessionID string, data any) StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return StreamEvent{}
	}
	b.seq++
	ev := StreamEvent{
		EventID:   strconv.FormatInt(b.seq, 10),
		Event:     event,
		SessionID: sessionID,
		ServerTS:  time.Now().UnixMilli(),
		Data:      data,
	}
	b.window = append(b.window, ev)
	if len(b.window) > b.max {
		b.window = b.window[len(b.window)-b.max:]
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// ReplayAfter returns the buffered events with an ID greater than
// lastEventID. An empty or malformed ID replays the whole window.
func (b *EventBuffer) ReplayAfter(lastEventID string) []StreamEvent {
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if err != nil {
		last = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]StreamEvent, 0, len(b.window))
	for _, ev := range b.window {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (b *EventBuffer) Subscribe() chan StreamEvent {
	ch := make(chan StreamEvent, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *EventBuffer) Unsubscribe(ch chan StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *EventBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
