package wailsapp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chottu/chottu-desktop/internal/core"
	"github.com/chottu/chottu-desktop/internal/events"
)

// Frontend event names.
const (
	EventNamePairingState   = "chottu:pairing_state"
	EventNameTokenChanged   = "chottu:token_changed"
	EventNameSettingChanged = "chottu:setting_changed"
	EventNameLog            = "chottu:log"
)

// emitFunc matches runtime.EventsEmit.
type emitFunc func(ctx context.Context, eventName string, optionalData ...interface{})

// EventBridge forwards events from internal EventBus to Wails runtime.
type EventBridge struct {
	ctx          context.Context
	eventBus     *events.EventBus
	subscription <-chan events.Event
	emit         emitFunc

	stopC   chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewEventBridge creates a new event bridge.
func NewEventBridge(ctx context.Context, eventBus *events.EventBus) *EventBridge {
	return &EventBridge{
		ctx:      ctx,
		eventBus: eventBus,
		emit:     runtime.EventsEmit,
		stopC:    make(chan struct{}),
	}
}

// Start begins forwarding events. A second Start is ignored.
func (eb *EventBridge) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.started {
		wailsLogger.Warn().Msg("Event bridge already started, ignoring duplicate Start()")
		return nil
	}

	eb.subscription = eb.eventBus.SubscribeAll()
	if eb.subscription == nil {
		return fmt.Errorf("event bridge: failed to subscribe to event bus")
	}

	eb.started = true
	eb.wg.Add(1)
	go eb.forwardLoop()

	wailsLogger.Debug().Msg("Event bridge started")
	return nil
}

// Stop stops forwarding events.
func (eb *EventBridge) Stop() {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		return
	}
	eb.started = false
	sub := eb.subscription
	eb.mu.Unlock()

	close(eb.stopC)
	eb.wg.Wait()
	eb.eventBus.UnsubscribeAll(sub)

	wailsLogger.Debug().Msg("Event bridge stopped")
}

func (eb *EventBridge) forwardLoop() {
	defer eb.wg.Done()

	for {
		select {
		case event, ok := <-eb.subscription:
			if !ok {
				return
			}
			eb.forwardEvent(event)

		case <-eb.stopC:
			return
		}
	}
}

func (eb *EventBridge) forwardEvent(event events.Event) {
	switch e := event.(type) {
	case *events.PairingStateEvent:
		eb.emit(eb.ctx, EventNamePairingState, pairingStateEventToDTO(e))

	case *events.TokenChangedEvent:
		eb.emit(eb.ctx, EventNameTokenChanged, TokenChangedEventDTO{
			Timestamp: e.Timestamp().Format(time.RFC3339Nano),
			Present:   e.Present,
			Source:    e.Source,
		})

	case *events.SettingChangedEvent:
		eb.emit(eb.ctx, EventNameSettingChanged, SettingChangedEventDTO{
			Timestamp: e.Timestamp().Format(time.RFC3339Nano),
			Key:       e.Key,
			Deleted:   e.Deleted,
		})

	case *events.LogEvent:
		eb.emit(eb.ctx, EventNameLog, logEventToDTO(e))
	}
}

// DTO conversion functions for JSON-safe serialization

// PairingStateEventDTO is the JSON-safe version of events.PairingStateEvent.
type PairingStateEventDTO struct {
	Timestamp string `json:"timestamp"`
	AttemptID string `json:"attemptId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Error     string `json:"error,omitempty"`
}

func pairingStateEventToDTO(e *events.PairingStateEvent) PairingStateEventDTO {
	dto := PairingStateEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		AttemptID: e.AttemptID,
		From:      e.From,
		To:        e.To,
	}
	if e.Error != nil {
		dto.Error = core.Describe(e.Error)
	}
	return dto
}

// TokenChangedEventDTO never carries the token itself.
type TokenChangedEventDTO struct {
	Timestamp string `json:"timestamp"`
	Present   bool   `json:"present"`
	Source    string `json:"source"`
}

// SettingChangedEventDTO is the JSON-safe version of events.SettingChangedEvent.
type SettingChangedEventDTO struct {
	Timestamp string `json:"timestamp"`
	Key       string `json:"key"`
	Deleted   bool   `json:"deleted"`
}

// LogEventDTO is the JSON-safe version of events.LogEvent.
type LogEventDTO struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	Error     string `json:"error,omitempty"`
}

func logEventToDTO(e *events.LogEvent) LogEventDTO {
	dto := LogEventDTO{
		Timestamp: e.Timestamp().Format(time.RFC3339Nano),
		Level:     e.Level.String(),
		Message:   e.Message,
		Stage:     e.Stage,
	}
	if e.Error != nil {
		dto.Error = e.Error.Error()
	}
	return dto
}
