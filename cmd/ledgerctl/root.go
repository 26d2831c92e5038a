package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

var version = "1.0.0"

var (
	dbPath   string
	logLevel string
	logger   *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Administer the ledger database",
	Long: `ledgerctl runs maintenance and reporting tasks directly against the
ledger SQLite database: schema migrations, invoice numbering, analytics,
outstanding dues and due settlement.

Environment variables (a .env file is loaded when present):
  SQLITE_DB_PATH - database file (default ./data/ledger.db)
  LOG_LEVEL      - debug, info, warn or error
  AMQP_URL       - when set, writes are announced as ledger.changed events`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := config.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		// Logs go to stderr so stdout stays machine readable.
		logger = log.New(log.Config{
			Level:     level,
			Component: log.ComponentCLI,
			Output:    os.Stderr,
		})
		log.SetDefault(logger)
		return nil
	},
}

func init() {
	cfg := config.Load()
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.SQLiteDBPath, "path of the ledger SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// openServices opens the database and, when AMQP is configured, an event
// publisher. A broker that cannot be reached only disables events.
func openServices() (*services.Services, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	var publisher services.Publisher
	backendCfg, err := backend.FromAppConfig(config.Load())
	if err == nil && backendCfg.EventsEnabled() {
		client, err := backend.NewFactory(logger).CreateEventClient(backendCfg)
		if err != nil {
			logger.Warn("Continuing without change events", log.FieldError, err)
		} else {
			publisher = client
		}
	}
	return services.New(repo, publisher), nil
}

// parseAsOf reads a YYYY-MM-DD flag value as noon UTC of that day. An empty
// value returns the zero time, which the services read as now.
func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := core.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: use YYYY-MM-DD", value)
	}
	return d.Add(12 * time.Hour), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
