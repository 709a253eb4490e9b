package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/streamdeckx/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "streamdeckx-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// captureLogger records Warn and Error calls.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(level, " ", msg, args))
}

func TestUnconnectedClient(t *testing.T) {
	c := newClient(testConfig())

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never dialled")
	}
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("a/#", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.Unsubscribe("a/#"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newClient(testConfig()).HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestValidation(t *testing.T) {
	c := newClient(testConfig())

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"publish empty topic", func() error { return c.Publish("", nil, 0, false) }, ErrInvalidTopic},
		{"publish bad qos", func() error { return c.Publish("t", nil, 3, false) }, ErrInvalidQoS},
		{"publish oversize", func() error { return c.Publish("t", make([]byte, maxPayloadSize+1), 0, false) }, ErrPublishFailed},
		{"publish json unmarshalable", func() error { return c.PublishJSON("t", make(chan int), false) }, ErrPublishFailed},
		{"subscribe empty topic", func() error { return c.Subscribe("", 0, nil) }, ErrInvalidTopic},
		{"subscribe bad qos", func() error { return c.Subscribe("t", 5, nil) }, ErrInvalidQoS},
		{"subscribe nil handler", func() error { return c.Subscribe("t", 0, nil) }, ErrSubscribeFailed},
		{"unsubscribe empty topic", func() error { return c.Unsubscribe("") }, ErrInvalidTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	c := newClient(testConfig())
	logger := &captureLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "streamdeckx/command/X/1", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "streamdeckx/command/X/2", nil)
	c.dispatch(func(string, []byte) error { return nil }, "streamdeckx/command/X/3", nil)

	if len(logger.lines) != 2 {
		t.Fatalf("logged %d lines, want 2: %v", len(logger.lines), logger.lines)
	}
	if !strings.HasPrefix(logger.lines[0], "ERROR MQTT handler panic recovered") {
		t.Errorf("first line = %q", logger.lines[0])
	}
	if !strings.HasPrefix(logger.lines[1], "WARN MQTT handler returned error") {
		t.Errorf("second line = %q", logger.lines[1])
	}
}

func TestDisconnectCallback(t *testing.T) {
	c := newClient(testConfig())
	c.setConnected(true)

	var got error
	c.SetOnDisconnect(func(err error) { got = err })
	c.handleDisconnect(errors.New("network down"))

	if got == nil || got.Error() != "network down" {
		t.Errorf("callback error = %v", got)
	}
	if c.IsConnected() {
		t.Error("still connected after disconnect")
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "deck"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "streamdeckx-test" || opts.Username != "deck" || opts.Password != "secret" {
		t.Errorf("identity = %q/%q/%q", opts.ClientID, opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession || opts.TLSConfig == nil {
		t.Error("expected auto-reconnect, clean session and TLS")
	}

	configureLWT(opts, cfg.Broker.ClientID)
	if !opts.WillEnabled || opts.WillTopic != "streamdeckx/system/status" || !opts.WillRetained {
		t.Errorf("LWT = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		payload    string
		wantStatus string
		wantReason string
	}{
		{buildOnlinePayload("sdx"), "online", ""},
		{buildOfflinePayload("sdx"), "offline", "graceful_shutdown"},
	}

	for _, tt := range tests {
		var msg StatusMessage
		if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
			t.Fatalf("payload %q: %v", tt.payload, err)
		}
		if msg.Status != tt.wantStatus || msg.Reason != tt.wantReason || msg.ClientID != "sdx" || msg.Timestamp == "" {
			t.Errorf("message = %+v", msg)
		}
	}
}
