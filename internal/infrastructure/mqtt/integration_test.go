//go:build integration

package mqtt

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_Connect(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "tablekit-int-connect"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	if _, err := Connect(cfg); err == nil {
		t.Fatal("Connect() expected error for unreachable broker")
	}
}

func TestIntegration_TableChangeRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "tablekit-int-roundtrip"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	received := make(chan map[string]any, 1)
	if err := client.Subscribe(Topics{}.TableChanges("int_users"), 1, func(_ string, payload []byte) error {
		var m map[string]any
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		received <- m
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	client.subMu.RLock()
	_, tracked := client.subscriptions[Topics{}.TableChanges("int_users")]
	client.subMu.RUnlock()
	if !tracked {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.PublishJSON(Topics{}.TableChange("int_users", "insert"), map[string]any{"id": 7}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case m := <-received:
		if m["id"] != float64(7) {
			t.Errorf("payload = %v, want id 7", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change event")
	}

	if err := client.Unsubscribe(Topics{}.TableChanges("int_users")); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	client.subMu.RLock()
	remaining := len(client.subscriptions)
	client.subMu.RUnlock()
	if remaining != 0 {
		t.Errorf("%d subscriptions tracked after Unsubscribe, want 0", remaining)
	}
}

func TestIntegration_Close(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "tablekit-int-callbacks"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	var disconnects atomic.Int32
	client.SetOnDisconnect(func(error) { disconnects.Add(1) })

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if disconnects.Load() != 0 {
		t.Error("graceful Close should not report a lost connection")
	}
}
