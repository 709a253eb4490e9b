// Package telemetry fans execution and deck events out to MQTT, the
// WebSocket hub, InfluxDB and Prometheus. Every sink is optional.
package telemetry

import (
	"sync"
	"time"

	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/dispatch"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/influxdb"
	"github.com/nerrad567/streamdeckx/internal/infrastructure/mqtt"
)

// WebSocket channels events are broadcast on.
const (
	ChannelExecuted = "button.executed"
	ChannelAttached = "deck.attached"
	ChannelDetached = "deck.detached"
)

// JSONPublisher publishes to MQTT. *mqtt.Client implements it.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Broadcaster pushes events to WebSocket clients. *api.Hub implements it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// PointWriter stores time-series points. *influxdb.Client implements it.
type PointWriter interface {
	WriteExecution(e influxdb.Execution)
	WriteDeckConnection(serial, kind string, connected bool)
}

// Logger defines the logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sinks lists the event destinations. Nil sinks are skipped.
type Sinks struct {
	MQTT    JSONPublisher
	Hub     Broadcaster
	Influx  PointWriter
	Metrics *Metrics
	Logger  Logger
}

// DeckEvent is published when a deck attaches or detaches.
type DeckEvent struct {
	Serial    string    `json:"serial"`
	Kind      deck.Kind `json:"kind,omitempty"`
	Event     string    `json:"event"`
	Created   bool      `json:"created,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher implements dispatch.Notifier and discovery.Observer.
type Publisher struct {
	sinks  Sinks
	topics mqtt.Topics

	mu       sync.Mutex
	attached map[string]deck.Kind
}

// NewPublisher creates a Publisher writing to sinks.
func NewPublisher(sinks Sinks) *Publisher {
	if sinks.Logger == nil {
		sinks.Logger = noopLogger{}
	}
	return &Publisher{sinks: sinks, attached: make(map[string]deck.Kind)}
}

// Executed publishes one execution to every sink.
func (p *Publisher) Executed(e dispatch.Execution) {
	if p.sinks.MQTT != nil {
		if err := p.sinks.MQTT.PublishJSON(p.topics.PressEvent(e.Serial, e.Position), e, false); err != nil {
			p.sinks.Logger.Debug("publishing execution", "execution_id", e.ID, "error", err)
		}
	}
	if p.sinks.Hub != nil {
		p.sinks.Hub.Broadcast(ChannelExecuted, e)
	}
	if p.sinks.Influx != nil {
		p.sinks.Influx.WriteExecution(influxdb.Execution{
			Serial:       e.Serial,
			Position:     e.Position,
			Source:       string(e.Source),
			Duration:     e.Duration,
			ActionsTotal: e.ActionsTotal,
			ActionsRun:   e.ActionsRun,
			Failed:       e.Failed(),
			At:           e.StartedAt,
		})
	}
	if p.sinks.Metrics != nil {
		p.sinks.Metrics.ObserveExecution(e)
	}
}

// DeckAttached publishes an attach event.
func (p *Publisher) DeckAttached(d *deck.Deck, created bool) {
	p.mu.Lock()
	p.attached[d.Serial()] = d.Kind()
	n := len(p.attached)
	p.mu.Unlock()

	p.deckEvent(DeckEvent{
		Serial:    d.Serial(),
		Kind:      d.Kind(),
		Event:     "attached",
		Created:   created,
		Timestamp: time.Now().UTC(),
	}, ChannelAttached, n)
}

// DeckDetached publishes a detach event.
func (p *Publisher) DeckDetached(serial string) {
	p.mu.Lock()
	kind := p.attached[serial]
	delete(p.attached, serial)
	n := len(p.attached)
	p.mu.Unlock()

	p.deckEvent(DeckEvent{
		Serial:    serial,
		Kind:      kind,
		Event:     "detached",
		Timestamp: time.Now().UTC(),
	}, ChannelDetached, n)
}

func (p *Publisher) deckEvent(ev DeckEvent, channel string, attached int) {
	if p.sinks.MQTT != nil {
		if err := p.sinks.MQTT.PublishJSON(p.topics.DeckEvent(ev.Serial), ev, true); err != nil {
			p.sinks.Logger.Debug("publishing deck event", "serial", ev.Serial, "error", err)
		}
	}
	if p.sinks.Hub != nil {
		p.sinks.Hub.Broadcast(channel, ev)
	}
	if p.sinks.Influx != nil {
		p.sinks.Influx.WriteDeckConnection(ev.Serial, string(ev.Kind), ev.Event == "attached")
	}
	if p.sinks.Metrics != nil {
		p.sinks.Metrics.SetAttached(attached)
	}
}
