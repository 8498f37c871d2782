package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nerrad567/tablekit/internal/infrastructure/mqtt"
	"github.com/nerrad567/tablekit/internal/migration"
	"github.com/nerrad567/tablekit/internal/observer"
	"github.com/nerrad567/tablekit/internal/seed"
	"github.com/nerrad567/tablekit/internal/table"
	"github.com/nerrad567/tablekit/migrations"
)

// errMQTTDisabled is returned by watch when the change feed is not configured.
var errMQTTDisabled = errors.New("mqtt is not enabled in config")

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	configPath string
	stdout     io.Writer
}

// newRootCmd builds the tablekit command tree writing to stdout.
func newRootCmd(stdout io.Writer) *cobra.Command {
	c := &cli{stdout: stdout}

	root := &cobra.Command{
		Use:           "tablekit",
		Short:         "Generic table access for SQLite, MySQL and PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "`file` to load config from (default $TABLEKIT_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		c.versionCmd(),
		c.migrateCmd(),
		c.seedCmd(),
		c.clearCmd(),
		c.selectCmd(),
		c.countCmd(),
		c.describeCmd(),
		c.queryCmd(),
		c.execCmd(),
		c.healthCmd(),
		c.watchCmd(),
	)
	return root
}

// withEnv opens an env for the duration of fn.
func (c *cli) withEnv(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx, getConfigPath(c.configPath))
		if err != nil {
			return err
		}
		defer e.close()
		return fn(ctx, e, args)
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(c.stdout, "tablekit %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// migrationSource returns the filesystem and directory holding the
// migrations for the configured driver.
func migrationSource(e *env) (fs.FS, string) {
	if e.cfg.Migrations.Dir != "" {
		return os.DirFS(e.cfg.Migrations.Dir), "."
	}
	return migrations.FS, e.db.Dialect().Driver()
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: c.withEnv(func(ctx context.Context, e *env, _ []string) error {
			fsys, dir := migrationSource(e)
			n, err := migration.New(e.acc, e.log.Logger).Apply(ctx, fsys, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "applied %d migrations\n", n)
			return nil
		}),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: c.withEnv(func(ctx context.Context, e *env, _ []string) error {
				fsys, dir := migrationSource(e)
				applied, pending, err := migration.New(e.acc, e.log.Logger).Status(ctx, fsys, dir)
				if err != nil {
					return err
				}
				writeMigrationStatus(c.stdout, applied, pending)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recently applied migration",
			Args:  cobra.NoArgs,
			RunE: c.withEnv(func(ctx context.Context, e *env, _ []string) error {
				fsys, dir := migrationSource(e)
				name, err := migration.New(e.acc, e.log.Logger).Down(ctx, fsys, dir)
				if err != nil {
					return err
				}
				if name == "" {
					fmt.Fprintln(c.stdout, "nothing to revert")
					return nil
				}
				fmt.Fprintf(c.stdout, "reverted %s\n", name)
				return nil
			}),
		},
	)
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Insert the rows of a YAML fixture file (default seed.file from config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			path := e.cfg.Seed.File
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no fixture file given and seed.file is not set")
			}

			counts, err := seed.New(e.acc, e.log.Logger).SeedFile(ctx, path)
			if err != nil {
				return err
			}
			writeCounts(c.stdout, "inserted", counts)
			return nil
		}),
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <table>",
		Short: "Delete every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			n, err := seed.New(e.acc, e.log.Logger).Clear(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "deleted %d rows from %s\n", n, args[0])
			return nil
		}),
	}
}

// whereFlag registers the repeatable --where flag on fs.
func whereFlag(flags *pflag.FlagSet, dst *[]string) {
	flags.StringArrayVarP(dst, "where", "w", nil, "condition `col<op>value` (ops = != < <= > >=; value NULL matches NULL); repeatable")
}

func (c *cli) selectCmd() *cobra.Command {
	var (
		where  []string
		order  []string
		desc   bool
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Print the rows of a table matching every --where condition",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			conds, err := parseConditions(where)
			if err != nil {
				return err
			}

			q := table.Query{Where: conds, Limit: limit, Offset: offset}
			for _, col := range order {
				q.OrderBy = append(q.OrderBy, table.Order{Column: col, Desc: desc})
			}

			set, err := e.acc.SelectSet(ctx, args[0], q)
			if err != nil {
				return err
			}
			writeResultSet(c.stdout, set)
			return nil
		}),
	}

	flags := cmd.Flags()
	whereFlag(flags, &where)
	flags.StringSliceVarP(&order, "order", "o", nil, "order by `columns`")
	flags.BoolVar(&desc, "desc", false, "sort descending")
	flags.IntVarP(&limit, "limit", "n", 0, "maximum `rows` to return (0 = all)")
	flags.IntVar(&offset, "offset", 0, "rows to skip (requires --limit)")
	return cmd
}

func (c *cli) countCmd() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count the rows of a table matching every --where condition",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			conds, err := parseConditions(where)
			if err != nil {
				return err
			}
			n, err := e.acc.Count(ctx, args[0], conds)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, n)
			return nil
		}),
	}
	whereFlag(cmd.Flags(), &where)
	return cmd
}

func (c *cli) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Print the column metadata of a table",
		Args:  cobra.ExactArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			cols, err := e.acc.Describe(ctx, args[0])
			if err != nil {
				return err
			}
			writeColumns(c.stdout, cols)
			return nil
		}),
	}
}

func (c *cli) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a row-returning statement with ? placeholders bound to args",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			set, err := e.acc.QuerySet(ctx, args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			writeResultSet(c.stdout, set)
			return nil
		}),
	}
}

func (c *cli) execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql> [args...]",
		Short: "Run a statement with ? placeholders bound to args",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			n, err := e.acc.Exec(ctx, args[0], stringArgs(args[1:])...)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "%d rows affected\n", n)
			return nil
		}),
	}
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database and any enabled MQTT or InfluxDB connection",
		Args:  cobra.NoArgs,
		RunE: c.withEnv(func(ctx context.Context, e *env, _ []string) error {
			results := e.healthCheck(ctx)

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			var failed []string
			for _, name := range names {
				if err := results[name]; err != nil {
					fmt.Fprintf(c.stdout, "%-9s FAIL %v\n", name, err)
					failed = append(failed, name)
					continue
				}
				fmt.Fprintf(c.stdout, "%-9s ok\n", name)
			}
			if len(failed) > 0 {
				return fmt.Errorf("health check failed: %s", strings.Join(failed, ", "))
			}
			return nil
		}),
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [table]",
		Short: "Print row changes published on the MQTT change feed until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.withEnv(func(ctx context.Context, e *env, args []string) error {
			if e.mqtt == nil {
				return errMQTTDisabled
			}

			topic := mqtt.Topics{}.AllTableChanges()
			if len(args) == 1 {
				topic = mqtt.Topics{}.TableChanges(args[0])
			}

			e.log.Info("watching change feed", "topic", topic)
			return watchChanges(ctx, e.mqtt, topic, byte(e.cfg.MQTT.QoS), c.stdout, e.log.Logger)
		}),
	}
}

// changeSource is the subset of *mqtt.Client watch needs.
type changeSource interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// watchChanges prints every change published on topic until ctx ends,
// then drops the subscription.
func watchChanges(ctx context.Context, src changeSource, topic string, qos byte, w io.Writer, log *slog.Logger) error {
	changes := make(chan observer.Change, 16)
	err := src.Subscribe(topic, qos, func(_ string, payload []byte) error {
		var ch observer.Change
		if err := json.Unmarshal(payload, &ch); err != nil {
			return fmt.Errorf("decoding change: %w", err)
		}
		select {
		case changes <- ch:
		case <-ctx.Done():
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Unsubscribe(topic); err != nil {
			log.Warn("unsubscribe failed", "topic", topic, "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ch := <-changes:
			writeChange(w, ch)
		}
	}
}

// parseConditions converts col<op>value expressions to conditions.
// Two-character operators are matched before one-character ones.
func parseConditions(exprs []string) (table.Conditions, error) {
	ops := []struct {
		token string
		op    table.Operator
	}{
		{"!=", table.OpNotEq},
		{"<=", table.OpLte},
		{">=", table.OpGte},
		{"=", table.OpEq},
		{"<", table.OpLt},
		{">", table.OpGt},
	}

	conds := make(table.Conditions, 0, len(exprs))
	for _, expr := range exprs {
		idx, tok, op := -1, "", table.Operator("")
		for _, o := range ops {
			if i := strings.Index(expr, o.token); i > 0 && (idx < 0 || i < idx) {
				idx, tok, op = i, o.token, o.op
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("invalid condition %q: want col<op>value", expr)
		}

		col := strings.TrimSpace(expr[:idx])
		raw := strings.TrimSpace(expr[idx+len(tok):])

		var value any = raw
		if strings.EqualFold(raw, "null") {
			value = nil
		}
		conds = append(conds, table.Condition{Column: col, Op: op, Value: value})
	}
	return conds, nil
}

// stringArgs binds command-line arguments as statement parameters, with
// integers passed as int64 so numeric comparisons behave on every driver.
func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if n, err := strconv.ParseInt(a, 10, 64); err == nil {
			out[i] = n
			continue
		}
		out[i] = a
	}
	return out
}
