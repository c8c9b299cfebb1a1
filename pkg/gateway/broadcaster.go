package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// observer is one connected websocket client watching runtime events.
type observer struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (o *observer) write(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn.WriteMessage(websocket.TextMessage, data)
}

// EventBroadcaster pushes runtime events (tool created, proposal queued,
// message received) to all connected observers. Losing an observer is never
// an error for the runtime operation that produced the event.
type EventBroadcaster struct {
	mu        sync.RWMutex
	observers map[string]*observer
	logger    zerolog.Logger
	seq       uint64
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster(logger zerolog.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		observers: make(map[string]*observer),
		logger:    logger,
	}
}

func (b *EventBroadcaster) add(o *observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers[o.id] = o
}

func (b *EventBroadcaster) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.observers, id)
}

func (b *EventBroadcaster) all() []*observer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*observer, 0, len(b.observers))
	for _, o := range b.observers {
		out = append(out, o)
	}
	return out
}

// Broadcast sends an event to every connected observer.
func (b *EventBroadcaster) Broadcast(event string, data interface{}) {
	msg := EventMessage{
		Type:      "event",
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Seq:       int64(atomic.AddUint64(&b.seq, 1)),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	for _, o := range b.all() {
		if err := o.write(jsonData); err != nil {
			b.logger.Warn().
				Err(err).
				Str("observerId", o.id).
				Str("event", event).
				Msg("Failed to broadcast to observer")
		}
	}
}
