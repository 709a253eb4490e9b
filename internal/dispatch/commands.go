package dispatch

import (
	"context"

	"github.com/nerrad567/streamdeckx/internal/infrastructure/mqtt"
)

// Subscriber registers MQTT handlers. *mqtt.Client implements it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// SubscribeCommands triggers buttons from messages on
// streamdeckx/command/{serial}/{position}. The payload is ignored. Each
// command runs on its own goroutine so a long delay does not hold up the
// MQTT client.
func (d *Dispatcher) SubscribeCommands(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(mqtt.Topics{}.AllCommands(), 1, d.commandHandler(ctx))
}

func (d *Dispatcher) commandHandler(ctx context.Context) mqtt.MessageHandler {
	return func(topic string, _ []byte) error {
		serial, position, err := mqtt.ParseCommand(topic)
		if err != nil {
			return err
		}
		go func() {
			if _, err := d.Trigger(ctx, serial, position, SourceMQTT); err != nil {
				d.logger.Warn("mqtt command failed", "topic", topic, "error", err)
			}
		}()
		return nil
	}
}
