// Package observer turns table.Event values into side effects outside the
// database: a JSON change feed published over MQTT and per-statement
// metrics written to InfluxDB.
//
// Both observers are attached to an Accessor with SetObserver, usually
// combined through table.MultiObserver:
//
//	acc.SetObserver(table.MultiObserver{
//	    observer.NewChangeFeed(mqttClient, logger),
//	    observer.NewMetrics(influxClient),
//	})
//
// Observers run synchronously on the statement's goroutine. Publish and
// write failures are logged and never reach the caller of the statement.
package observer
