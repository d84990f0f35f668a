// Package events is the in-process event bus between the pairing core, the
// stores and the GUI event bridge.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chottu/chottu-desktop/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventPairingState   EventType = "pairing_state"
	EventTokenChanged   EventType = "token_changed"
	EventSettingChanged EventType = "setting_changed"
	EventLog            EventType = "log"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// PairingStateEvent reports one transition of a pairing attempt.
type PairingStateEvent struct {
	BaseEvent
	AttemptID string
	From      string
	To        string
	Error     error // set when To is "failed"
}

// TokenChangedEvent reports that the stored device token was written or cleared.
// The token value itself is never carried on the bus.
type TokenChangedEvent struct {
	BaseEvent
	Present bool
	Source  string // "pairing", "manual", "clear"
}

// SettingChangedEvent reports a settings store write.
type SettingChangedEvent struct {
	BaseEvent
	Key     string
	Deleted bool
}

// LogEvent represents log messages forwarded to the GUI activity view.
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Stage   string
	Error   error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for a full subscriber are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		eb.send(ch, event)
	}
	for _, ch := range eb.all {
		eb.send(ch, event)
	}
}

func (eb *EventBus) send(ch chan Event, event Event) {
	select {
	case ch <- event:
	default:
		eb.droppedEvents.Add(1)
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishPairingState is a convenience method for pairing transitions
func (eb *EventBus) PublishPairingState(attemptID, from, to string, err error) {
	eb.Publish(&PairingStateEvent{
		BaseEvent: BaseEvent{EventType: EventPairingState, Time: time.Now()},
		AttemptID: attemptID,
		From:      from,
		To:        to,
		Error:     err,
	})
}

// PublishTokenChanged is a convenience method for token writes and clears
func (eb *EventBus) PublishTokenChanged(present bool, source string) {
	eb.Publish(&TokenChangedEvent{
		BaseEvent: BaseEvent{EventType: EventTokenChanged, Time: time.Now()},
		Present:   present,
		Source:    source,
	})
}

// PublishSettingChanged is a convenience method for settings writes
func (eb *EventBus) PublishSettingChanged(key string, deleted bool) {
	eb.Publish(&SettingChangedEvent{
		BaseEvent: BaseEvent{EventType: EventSettingChanged, Time: time.Now()},
		Key:       key,
		Deleted:   deleted,
	})
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message, stage string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
		Level:     level,
		Message:   message,
		Stage:     stage,
		Error:     err,
	})
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
