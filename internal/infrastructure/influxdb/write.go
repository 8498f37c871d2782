package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementStatements is the measurement name for statement metrics.
const MeasurementStatements = "statements"

// Statement status tag values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Statement describes one executed table statement.
type Statement struct {
	Action   string
	Table    string
	Failed   bool
	Kind     string // error kind when Failed, e.g. "constraint"
	Duration time.Duration
	Rows     int64
	At       time.Time
}

// StatementPoint builds the InfluxDB point for s.
//
// Tags are action, table, status and (on failure) kind; fields are
// duration_ms and rows. A zero At is stamped with the current time.
func StatementPoint(s Statement) *write.Point {
	tags := map[string]string{
		"action": s.Action,
		"status": StatusOK,
	}
	if s.Table != "" {
		tags["table"] = s.Table
	}
	if s.Failed {
		tags["status"] = StatusError
		if s.Kind != "" {
			tags["kind"] = s.Kind
		}
	}

	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(
		MeasurementStatements,
		tags,
		map[string]interface{}{
			"duration_ms": float64(s.Duration) / float64(time.Millisecond),
			"rows":        s.Rows,
		},
		at,
	)
}

// WriteStatement records one statement. Non-blocking; dropped when the
// client is not connected.
//
// Example:
//
//	client.WriteStatement(influxdb.Statement{Action: "update", Table: "users", Rows: 3})
func (c *Client) WriteStatement(s Statement) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(StatementPoint(s))
}
