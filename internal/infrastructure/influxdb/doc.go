// Package influxdb writes streamdeckx time series to InfluxDB v2.
//
// Every button execution becomes a button_execution point tagged with the
// deck serial, button position and trigger source. Deck attach and detach
// become deck_connection points. InfluxDB is optional; Connect returns
// ErrDisabled when it is turned off.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteExecution(influxdb.Execution{Serial: "CL123", Position: 3, Source: "key"})
package influxdb
