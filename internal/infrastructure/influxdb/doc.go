// Package influxdb records automation firings and command dispatches in
// InfluxDB.
//
// The client satisfies the Metrics interfaces of the automation and command
// packages. Writes are non-blocking and batched by the official
// influxdb-client-go v2 write API; asynchronous write failures reach the
// callback set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("command_dispatch",
//	    map[string]string{"device_id": "D1", "status": "SENT"},
//	    map[string]interface{}{"endpoint_id": 1})
//
// Every point carries a site tag. Connect returns ErrDisabled when the
// integration is switched off, and callers then run without a sink.
package influxdb
