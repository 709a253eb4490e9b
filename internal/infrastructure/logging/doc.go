// Package logging provides structured logging for streamdeckx.
//
// It wraps log/slog so every component logs key-value records with the
// same default fields (service, version).
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("deck attached", "serial", serial)
//
// Never log MQTT credentials or InfluxDB tokens.
package logging
