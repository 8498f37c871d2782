package observer

import (
	"context"
	"errors"

	"github.com/nerrad567/tablekit/internal/infrastructure/influxdb"
	"github.com/nerrad567/tablekit/internal/table"
)

// StatementWriter is the subset of *influxdb.Client the metrics observer needs.
type StatementWriter interface {
	WriteStatement(s influxdb.Statement)
}

// Metrics records every statement, successful or failed, as an InfluxDB point.
type Metrics struct {
	w StatementWriter
}

// NewMetrics creates a metrics observer writing through w.
func NewMetrics(w StatementWriter) *Metrics {
	return &Metrics{w: w}
}

// Observe implements table.Observer.
func (m *Metrics) Observe(_ context.Context, ev table.Event) {
	s := influxdb.Statement{
		Action:   string(ev.Action),
		Table:    ev.Table,
		Duration: ev.Duration,
		Rows:     ev.RowsAffected,
	}
	if ev.Err != nil {
		s.Failed = true
		var stmtErr *table.StatementError
		if errors.As(ev.Err, &stmtErr) {
			s.Kind = string(stmtErr.Kind)
		}
	}
	m.w.WriteStatement(s)
}
