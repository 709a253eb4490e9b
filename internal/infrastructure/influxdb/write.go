package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementExecution = "button_execution"
	MeasurementDeck      = "deck_connection"
)

// Execution is one run of a button's action sequence.
type Execution struct {
	Serial       string
	Position     int
	Source       string
	Duration     time.Duration
	ActionsTotal int
	ActionsRun   int
	Failed       bool
	At           time.Time
}

// WriteExecution records e. Serial, position and source are tags; timing
// and counts are fields.
func (c *Client) WriteExecution(e Execution) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(executionPoint(e))
}

func executionPoint(e Execution) *write.Point {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementExecution,
		map[string]string{
			"serial":   e.Serial,
			"position": strconv.Itoa(e.Position),
			"source":   e.Source,
		},
		map[string]any{
			"duration_ms":   float64(e.Duration.Microseconds()) / 1000,
			"actions_total": e.ActionsTotal,
			"actions_run":   e.ActionsRun,
			"failed":        e.Failed,
		},
		at,
	)
}

// WriteDeckConnection records a deck attaching (connected true) or
// detaching.
func (c *Client) WriteDeckConnection(serial, kind string, connected bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementDeck,
		map[string]string{"serial": serial, "kind": kind},
		map[string]any{"connected": connected},
		time.Now(),
	))
}
