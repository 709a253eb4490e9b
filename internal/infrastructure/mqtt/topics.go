package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicPrefix is the root of every streamdeckx topic.
const TopicPrefix = "streamdeckx"

// Topics builds streamdeckx MQTT topic names.
//
//	topics := mqtt.Topics{}
//	topics.PressEvent("CL12345", 3) // streamdeckx/event/press/CL12345/3
type Topics struct{}

// SystemStatus carries retained online/offline status and the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// DeckEvent carries attach and detach notifications for one deck.
func (Topics) DeckEvent(serial string) string {
	return fmt.Sprintf("%s/event/deck/%s", TopicPrefix, serial)
}

// PressEvent carries the result of executing one button.
func (Topics) PressEvent(serial string, position int) string {
	return fmt.Sprintf("%s/event/press/%s/%d", TopicPrefix, serial, position)
}

// Command is the inbound topic that triggers one button remotely.
func (Topics) Command(serial string, position int) string {
	return fmt.Sprintf("%s/command/%s/%d", TopicPrefix, serial, position)
}

// AllCommands matches every button command topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+/+"
}

// Input carries synthetic key events for the input agent on host.
func (Topics) Input(host string) string {
	return fmt.Sprintf("%s/input/%s", TopicPrefix, host)
}

// ParseCommand extracts serial and position from a Command topic.
func ParseCommand(topic string) (serial string, position int, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if ok {
		if i := strings.LastIndexByte(rest, '/'); i > 0 {
			serial = rest[:i]
			position, err = strconv.Atoi(rest[i+1:])
			if err == nil && position >= 0 && !strings.Contains(serial, "/") {
				return serial, position, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: %q is not a command topic", ErrInvalidTopic, topic)
}
