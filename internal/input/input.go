package input

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/streamdeckx/internal/keys"
)

// Event is one synthetic key transition.
type Event struct {
	Key       string    `json:"key"`
	Kind      keys.Kind `json:"kind"`
	Pressed   bool      `json:"pressed"`
	Timestamp int64     `json:"ts"` // Unix ms
}

// Logger is the logging interface used by the injectors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// LogInjector logs key events instead of emitting them.
type LogInjector struct {
	logger Logger
}

// NewLogInjector creates a dry-run injector.
func NewLogInjector(logger Logger) *LogInjector {
	return &LogInjector{logger: logger}
}

func (l *LogInjector) Press(k keys.Key) error {
	l.logger.Info("key press", "key", k.Name, "kind", k.Kind)
	return nil
}

func (l *LogInjector) Release(k keys.Key) error {
	l.logger.Info("key release", "key", k.Name, "kind", k.Kind)
	return nil
}

// Publisher is the MQTT client surface RemoteInjector needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// RemoteInjector publishes key events as JSON to an MQTT topic read by an
// input agent running on the machine that should receive the keystrokes.
// QoS 1 is used so events are not silently dropped; the agent must apply
// them in arrival order.
type RemoteInjector struct {
	pub   Publisher
	topic string
	now   func() time.Time
}

// NewRemoteInjector creates an injector publishing on topic.
func NewRemoteInjector(pub Publisher, topic string) *RemoteInjector {
	return &RemoteInjector{pub: pub, topic: topic, now: time.Now}
}

func (r *RemoteInjector) Press(k keys.Key) error   { return r.send(k, true) }
func (r *RemoteInjector) Release(k keys.Key) error { return r.send(k, false) }

func (r *RemoteInjector) send(k keys.Key, pressed bool) error {
	payload, err := json.Marshal(Event{
		Key:       k.Name,
		Kind:      k.Kind,
		Pressed:   pressed,
		Timestamp: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encoding key event: %w", err)
	}
	if err := r.pub.Publish(r.topic, payload, 1, false); err != nil {
		return fmt.Errorf("publishing key event: %w", err)
	}
	return nil
}
