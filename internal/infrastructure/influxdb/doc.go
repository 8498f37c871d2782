// Package influxdb records tablekit statement metrics in InfluxDB v2.
//
// Each executed statement becomes one point:
//
//	statements,action=insert,status=ok,table=users duration_ms=1.42,rows=1i
//
// Writes go through the non-blocking, batching write API of
// influxdb-client-go; batch size and flush interval come from config.
// Asynchronous write failures are delivered to the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStatement(influxdb.Statement{
//	    Action:   "insert",
//	    Table:    "users",
//	    Duration: 3 * time.Millisecond,
//	    Rows:     1,
//	})
package influxdb
