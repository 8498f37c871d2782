// Package mqtt provides the MQTT client behind the tablekit change feed.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing row change events with QoS guarantees
//   - Subscriptions with wildcard support (used by "tablekit watch")
//   - Last Will and Testament (LWT) on tablekit/system/status
//
// # Topics
//
//	tablekit/table/{table}/{action}   row changes (insert, update, delete)
//	tablekit/system/status            retained online/offline status
//
// # Security Considerations
//
//   - Set broker.tls for anything beyond a local broker
//   - Credentials come from config or TABLEKIT_MQTT_USERNAME/PASSWORD
//   - Change events carry row values; restrict topic ACLs accordingly
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllTableChanges(), 1,
//	    func(topic string, payload []byte) error {
//	        fmt.Printf("%s %s\n", topic, payload)
//	        return nil
//	    })
package mqtt
