package observer

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/tablekit/internal/infrastructure/logging"
	"github.com/nerrad567/tablekit/internal/infrastructure/mqtt"
	"github.com/nerrad567/tablekit/internal/table"
)

// Publisher is the subset of *mqtt.Client the change feed needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Change is the payload published on tablekit/table/{table}/{action}.
type Change struct {
	ID        string         `json:"id"`
	Table     string         `json:"table"`
	Action    string         `json:"action"`
	Row       map[string]any `json:"row,omitempty"`
	Where     []Predicate    `json:"where,omitempty"`
	InsertID  int64          `json:"insert_id,omitempty"`
	Rows      int64          `json:"rows"`
	Timestamp string         `json:"timestamp"`
}

// Predicate is the wire form of a table.Condition.
type Predicate struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value,omitempty"`
}

// ChangeFeed publishes one Change per successful insert, and per update or
// delete that touched at least one row.
type ChangeFeed struct {
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewChangeFeed creates a change feed publishing through pub.
// A nil logger discards publish failures.
func NewChangeFeed(pub Publisher, logger *slog.Logger) *ChangeFeed {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ChangeFeed{pub: pub, logger: logger, now: time.Now}
}

// Observe implements table.Observer.
func (f *ChangeFeed) Observe(_ context.Context, ev table.Event) {
	change, ok := f.change(ev)
	if !ok {
		return
	}

	topic := mqtt.Topics{}.TableChange(ev.Table, string(ev.Action))
	if err := f.pub.PublishJSON(topic, change); err != nil {
		f.logger.Warn("change feed publish failed",
			"topic", topic,
			"change_id", change.ID,
			"error", err,
		)
	}
}

// change builds the payload for ev, reporting false when ev is not a
// published change.
func (f *ChangeFeed) change(ev table.Event) (Change, bool) {
	if ev.Err != nil || !ev.Action.Mutates() || ev.Table == "" {
		return Change{}, false
	}
	if ev.Action != table.ActionInsert && ev.RowsAffected == 0 {
		return Change{}, false
	}

	c := Change{
		ID:        uuid.NewString(),
		Table:     ev.Table,
		Action:    string(ev.Action),
		InsertID:  ev.LastInsertID,
		Rows:      ev.RowsAffected,
		Timestamp: f.now().UTC().Format(time.RFC3339Nano),
	}
	if len(ev.Row) > 0 {
		c.Row = maps.Clone(map[string]any(ev.Row))
	}
	for _, cond := range ev.Where {
		c.Where = append(c.Where, Predicate{Column: cond.Column, Op: string(cond.Op), Value: cond.Value})
	}
	return c, true
}
