// Package mqtt connects streamdeckx to an MQTT broker.
//
// MQTT is optional. When enabled it carries:
//   - streamdeckx/system/status: retained online/offline status and the LWT
//   - streamdeckx/event/deck/{serial}: deck attach and detach events
//   - streamdeckx/event/press/{serial}/{position}: button execution results
//   - streamdeckx/command/{serial}/{position}: inbound remote button triggers
//   - streamdeckx/input/{host}: key events for a remote input agent
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        serial, position, err := mqtt.ParseCommand(topic)
//	        ...
//	    })
package mqtt
