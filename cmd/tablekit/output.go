package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/nerrad567/tablekit/internal/migration"
	"github.com/nerrad567/tablekit/internal/observer"
	"github.com/nerrad567/tablekit/internal/table"
)

const nullText = "NULL"

// newTable returns a writer with headers printed as given.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(header)
	return tw
}

// writeResultSet prints set in column order followed by a row count.
func writeResultSet(w io.Writer, set *table.ResultSet) {
	tw := newTable(w, set.Columns...)

	line := make([]string, len(set.Columns))
	for _, row := range set.Rows {
		for i, col := range set.Columns {
			line[i] = formatValue(row[col])
		}
		tw.Append(line)
	}
	tw.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(set.Rows))
}

func writeColumns(w io.Writer, cols []table.Column) {
	tw := newTable(w, "column", "type", "nullable", "default", "key")
	for _, c := range cols {
		def := nullText
		if c.Default != nil {
			def = *c.Default
		}
		key := ""
		if c.PrimaryKey {
			key = "PRI"
		}
		tw.Append([]string{c.Name, c.Type, strconv.FormatBool(c.Nullable), def, key})
	}
	tw.Render()
}

func writeMigrationStatus(w io.Writer, applied []migration.Record, pending []migration.Migration) {
	tw := newTable(w, "migration", "status", "applied at")
	for _, r := range applied {
		tw.Append([]string{r.Name, "applied", formatValue(r.AppliedAt)})
	}
	for _, m := range pending {
		tw.Append([]string{m.Name, "pending", ""})
	}
	tw.Render()
	fmt.Fprintf(w, "(%d applied, %d pending)\n", len(applied), len(pending))
}

// writeCounts prints one "verb N rows into table" line per table, sorted.
func writeCounts(w io.Writer, verb string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %d rows into %s\n", verb, counts[name], name)
	}
}

func writeChange(w io.Writer, ch observer.Change) {
	fmt.Fprintf(w, "%s %s %s rows=%d", ch.Timestamp, ch.Table, ch.Action, ch.Rows)
	if ch.InsertID != 0 {
		fmt.Fprintf(w, " id=%d", ch.InsertID)
	}
	fmt.Fprintf(w, " change=%s\n", ch.ID)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return nullText
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
