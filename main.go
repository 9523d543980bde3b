package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arec/internal/dblib"
	"arec/internal/record"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		if telemetry {
			CaptureError(err)
			FlushAndShutdown()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arec",
	Short: "arec reads and writes table rows as records",
	Long: `arec maps table rows to records addressed by their primary key and runs
find, get, insert, update and delete against them.

Examples:
  arec find shop users name=Ann
  arec get shop users 7
  arec insert shop users name=Ann age=30
  arec update shop users 7 age=31
  arec delete shop users 7
  arec preview users update age=31 --where id=7 --type mysql`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
}

var (
	configPath string
	database   string
	host       string
	port       string
	username   string
	password   string
	dbType     string
	primaryKey []string

	orderBy string
	limit   int
	where   []string
)

// Set up by setup before any command runs.
var (
	config    *Config
	logger    = zap.NewNop()
	events    = record.NewEvents()
	telemetry bool
	out       io.Writer = os.Stdout
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("help", "", false, "help for arec")
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/arec/config.yaml)")
	flags.StringVarP(&database, "database", "d", "", "Database name")
	flags.StringVarP(&host, "host", "h", "", "Database host")
	flags.StringVarP(&port, "port", "p", "", "Database port")
	flags.StringVarP(&username, "username", "U", "", "Database username")
	flags.StringVarP(&password, "password", "W", "", "Database password")
	flags.StringVarP(&dbType, "type", "t", "", "Database type (sqlite, postgres, mysql)")
	flags.StringSliceVarP(&primaryKey, "primary-key", "k", nil, "Primary key columns, in order (default from config, else id)")

	findCmd.Flags().StringVarP(&orderBy, "order", "o", "", "Sort column, prefix with - for descending")
	findCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows")
	previewCmd.Flags().StringArrayVarP(&where, "where", "w", nil, "col=val filter for update and delete")

	rootCmd.AddCommand(findCmd, getCmd, insertCmd, updateCmd, deleteCmd, previewCmd, telemetryCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if config, err = loadConfig(configPath); err != nil {
		return err
	}
	if logger, err = newLogger(config.LogLevel); err != nil {
		return fmt.Errorf("could not create logger: %w", err)
	}

	settings, err := LoadSettings()
	if err != nil {
		logger.Warn("could not load settings", zap.Error(err))
		settings = &Settings{}
	}
	if settings.TelemetryEnabled && config.SentryDSN != "" {
		if err := InitSentry(config.SentryDSN); err != nil {
			logger.Warn("telemetry disabled", zap.Error(err))
		} else {
			telemetry = true
		}
	}

	InitBreadcrumbs(50)
	breadcrumbs.RecordCommand(cmd.Name(), args)
	events.OnAny(breadcrumbs)
	events.OnAny(statementLogger(logger))
	return nil
}

// statementLogger logs the executed SQL of every record event at debug level,
// rendered in the dialect of the record's adapter.
func statementLogger(logger *zap.Logger) record.Listener {
	return record.ListenerFunc(func(ev *record.Event) {
		if ev.Statement == nil || !logger.Core().Enabled(zap.DebugLevel) {
			return
		}
		sql, err := ev.Record.SQL()
		if err != nil {
			return
		}
		if text, err := sql.Preview(ev.Statement); err == nil {
			logger.Debug("record event", zap.String("event", ev.Name), zap.String("sql", text))
		}
	})
}

// openTable connects to dbName and returns a prototype record for table.
// The caller closes the adapter.
func openTable(ctx context.Context, dbName, table string) (*record.Record, *dblib.DBAdapter, error) {
	flags := ConnectionFlags{
		Database: database,
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Type:     dbType,
	}
	dbConfig := config.resolveDatabase(dbName, flags)

	adapter, err := dbConfig.connect(ctx, logger)
	if err != nil {
		if suggestions := config.suggestDatabases(dbName); len(suggestions) > 0 {
			err = fmt.Errorf("%w\n\nDid you mean %s?", err, strings.Join(suggestions, ", "))
		}
		return nil, nil, fmt.Errorf("connect to %q: %w", dbName, err)
	}

	pk := primaryKey
	if len(pk) == 0 {
		pk = dbConfig.primaryKey(table)
	}
	proto := record.New(
		record.WithAdapter(adapter),
		record.WithTableName(table),
		record.WithPrimaryKey(pk...),
		record.WithEvents(events),
		record.WithLogger(logger.Named("record")),
	)
	return proto, adapter, nil
}

var findCmd = &cobra.Command{
	Use:   "find <db> <table> [col=val ...]",
	Short: "List the rows whose columns equal the given values",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		proto, adapter, err := openTable(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		defer adapter.Close()

		cond := record.Where(filter)
		if orderBy != "" || limit > 0 {
			cond = record.Func(func(s *dblib.Select) {
				s.WhereFields(filter)
				if orderBy != "" {
					s.OrderBy(strings.TrimPrefix(orderBy, "-"), !strings.HasPrefix(orderBy, "-"))
				}
				s.Limit(limit)
			})
		}
		found, err := proto.Find(cmd.Context(), cond)
		if err != nil {
			return err
		}
		return renderRecords(out, found)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <db> <table> <pk...>",
	Short: "Show the row with the given primary key",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		proto, adapter, err := openTable(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		defer adapter.Close()

		rec, err := proto.FindByPk(cmd.Context(), parseValues(args[2:])...)
		if err != nil {
			return err
		}
		if rec == nil {
			return renderRecords(out, nil)
		}
		return renderRecords(out, []*record.Record{rec})
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <db> <table> [col=val ...]",
	Short: "Insert a row and show it with its primary key",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		proto, adapter, err := openTable(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		defer adapter.Close()

		rec := proto.Create(fields)
		if _, err := rec.Save(cmd.Context()); err != nil {
			return err
		}
		return renderRecords(out, []*record.Record{rec})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <db> <table> <pk...> col=val [col=val ...]",
	Short: "Change columns of the row with the given primary key",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		proto, adapter, err := openTable(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		defer adapter.Close()

		rec, err := findForChange(cmd.Context(), proto, args[2:])
		if err != nil {
			return err
		}
		fields, err := parseAssignments(args[2+len(proto.PrimaryKey()):])
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return errors.New("nothing to update: pass at least one col=val")
		}
		for _, col := range fields.Columns() {
			rec.Set(col, fields[col])
		}
		if _, err := rec.Save(cmd.Context()); err != nil {
			return err
		}
		return renderRecords(out, []*record.Record{rec})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <db> <table> <pk...>",
	Short: "Delete the row with the given primary key",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		proto, adapter, err := openTable(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		defer adapter.Close()

		if len(args[2:]) != len(proto.PrimaryKey()) {
			return fmt.Errorf("%w: expected %d key values, got %d",
				record.ErrPrimaryKeyArity, len(proto.PrimaryKey()), len(args[2:]))
		}
		rec, err := findForChange(cmd.Context(), proto, args[2:])
		if err != nil {
			return err
		}
		n, err := rec.Delete(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "deleted %d row(s)\n", n)
		return err
	},
}

// findForChange loads the row addressed by the leading key values of args.
func findForChange(ctx context.Context, proto *record.Record, args []string) (*record.Record, error) {
	n := len(proto.PrimaryKey())
	if len(args) < n {
		return nil, fmt.Errorf("%w: expected %d key values, got %d", record.ErrPrimaryKeyArity, n, len(args))
	}
	rec, err := proto.FindByPk(ctx, parseValues(args[:n])...)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no row in %s with %s = %s",
			proto.TableName(), strings.Join(proto.PrimaryKey(), ", "), strings.Join(args[:n], ", "))
	}
	return rec, nil
}

var previewCmd = &cobra.Command{
	Use:   "preview <table> <select|insert|update|delete> [col=val ...]",
	Short: "Print the SQL a command would run without connecting",
	Long: `preview renders the statement for the chosen dialect with the values inlined,
then parses it back and reports the tables and columns it touches.

For select and delete the col=val arguments filter the rows; for insert and
update they are the values written, and --where filters update.`,
	Args: cobra.MinimumNArgs(2),
	// runs without config or a connection
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		t := dblib.SQLite
		if dbType != "" {
			var err error
			if t, err = dblib.ParseDatabaseType(dbType); err != nil {
				return err
			}
		}
		fields, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		filter, err := parseAssignments(where)
		if err != nil {
			return err
		}
		stmt, err := buildPreview(dblib.NewSQL(t, dblib.ParseTableIdentifier(args[0])), args[1], fields, filter)
		if err != nil {
			return err
		}
		return renderStatement(out, t, stmt)
	},
}

func buildPreview(s *dblib.SQL, verb string, fields, filter dblib.Fields) (dblib.Statement, error) {
	switch strings.ToLower(verb) {
	case "select", "find":
		return s.Select().WhereFields(fields).WhereFields(filter), nil
	case "insert":
		ins := s.Insert().Values(fields)
		if len(primaryKey) == 1 {
			ins.Returning(primaryKey[0])
		}
		return ins, nil
	case "update":
		return s.Update().Set(fields).WhereFields(filter), nil
	case "delete":
		return s.Delete().WhereFields(fields).WhereFields(filter), nil
	default:
		return nil, fmt.Errorf("unknown statement %q: want select, insert, update or delete", verb)
	}
}

var telemetryCmd = &cobra.Command{
	Use:       "telemetry <on|off>",
	Short:     "Enable or disable error reporting",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := LoadSettings()
		if err != nil {
			return err
		}
		switch args[0] {
		case "on":
			settings.TelemetryEnabled = true
		case "off":
			settings.TelemetryEnabled = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		settings.FirstRunComplete = true
		if err := SaveSettings(settings); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "telemetry %s\n", args[0])
		return err
	},
}
