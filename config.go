package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"arec/internal/dblib"
)

// Config is the contents of config.yaml.
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases"`
	SentryDSN string                    `yaml:"sentry_dsn"`
	LogLevel  string                    `yaml:"log_level"`
}

// DatabaseConfig describes one named connection.
type DatabaseConfig struct {
	Type     string `yaml:"type"`
	DBName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// PrimaryKeys maps table names to their key columns when they are not "id".
	PrimaryKeys map[string][]string `yaml:"primary_keys"`
}

// ConnectionFlags are command line overrides for a DatabaseConfig.
type ConnectionFlags struct {
	Database string
	Host     string
	Port     string
	Username string
	Password string
	Type     string
}

// getConfigPath returns the full path to config.yaml
func getConfigPath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing file is an empty config.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = getConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{Databases: map[string]DatabaseConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	if config.Databases == nil {
		config.Databases = map[string]DatabaseConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &config, nil
}

// Validate reports every invalid database entry at once.
func (c *Config) Validate() error {
	var err error
	for _, name := range c.databaseNames() {
		db := c.Databases[name]
		if db.Type != "" {
			if _, perr := dblib.ParseDatabaseType(db.Type); perr != nil {
				err = multierr.Append(err, fmt.Errorf("database %q: %w", name, perr))
			}
		}
		if db.DBName == "" {
			err = multierr.Append(err, fmt.Errorf("database %q: dbname is required", name))
		}
		for table, cols := range db.PrimaryKeys {
			if len(cols) == 0 {
				err = multierr.Append(err, fmt.Errorf("database %q: table %q has an empty primary key", name, table))
			}
		}
	}
	if _, lerr := zap.ParseAtomicLevel(c.LogLevel); c.LogLevel != "" && lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", lerr))
	}
	return err
}

// GetDatabase returns the named database entry.
func (c *Config) GetDatabase(name string) (DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok
}

func (c *Config) databaseNames() []string {
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveDatabase looks name up in the config and applies the flag
// overrides. Unknown names are treated as a database name (or SQLite file)
// to connect to directly.
func (c *Config) resolveDatabase(name string, flags ConnectionFlags) DatabaseConfig {
	db, found := c.GetDatabase(name)
	if !found {
		db = DatabaseConfig{DBName: name}
	}
	if flags.Database != "" {
		db.DBName = flags.Database
	}
	if flags.Host != "" {
		db.Host = flags.Host
	}
	if flags.Port != "" {
		db.Port = flags.Port
	}
	if flags.Username != "" {
		db.User = flags.Username
	}
	if flags.Password != "" {
		db.Password = flags.Password
	}
	if flags.Type != "" {
		db.Type = flags.Type
	}
	return db
}

// suggestDatabases returns configured names resembling name, best first.
func (c *Config) suggestDatabases(name string) []string {
	if _, ok := c.Databases[name]; ok {
		return nil
	}
	return rankMatches(name, c.databaseNames(), 3)
}

// primaryKey returns the configured key columns for table, or nil.
func (db DatabaseConfig) primaryKey(table string) []string {
	return db.PrimaryKeys[table]
}

func (db DatabaseConfig) detectDatabaseType() (dblib.DatabaseType, error) {
	if db.Type != "" {
		return dblib.ParseDatabaseType(db.Type)
	}
	if strings.HasSuffix(db.DBName, ".sqlite") || strings.HasSuffix(db.DBName, ".db") {
		return dblib.SQLite, nil
	}
	if strings.HasSuffix(db.DBName, ".duckdb") {
		return dblib.DuckDB, nil
	}
	return dblib.PostgreSQL, nil
}

func (db DatabaseConfig) buildConnectionString() (string, dblib.DatabaseType, error) {
	dbType, err := db.detectDatabaseType()
	if err != nil {
		return "", dbType, err
	}

	switch dbType {
	case dblib.SQLite:
		if _, err := os.Stat(db.DBName); os.IsNotExist(err) {
			return "", dbType, fmt.Errorf("sqlite file does not exist: %s", db.DBName)
		}
		return db.DBName, dbType, nil

	case dblib.PostgreSQL:
		connStr := fmt.Sprintf("dbname=%s", db.DBName)

		if db.Host != "" {
			connStr += fmt.Sprintf(" host=%s", db.Host)
		}
		if db.Port != "" {
			connStr += fmt.Sprintf(" port=%s", db.Port)
		}
		if db.User != "" {
			connStr += fmt.Sprintf(" user=%s", db.User)
		} else if currentUser, err := user.Current(); err == nil {
			connStr += fmt.Sprintf(" user=%s", currentUser.Username)
		}
		if db.Password != "" {
			connStr += fmt.Sprintf(" password=%s", db.Password)
		}
		connStr += " sslmode=disable"

		return connStr, dbType, nil

	case dblib.MySQL:
		connStr := ""
		if db.User != "" {
			connStr = db.User
		} else if currentUser, err := user.Current(); err == nil {
			connStr = currentUser.Username
		}

		if db.Password != "" {
			connStr += ":" + db.Password
		}

		connStr += "@"

		if db.Host != "" && db.Port != "" {
			connStr += fmt.Sprintf("tcp(%s:%s)", db.Host, db.Port)
		} else if db.Host != "" {
			connStr += fmt.Sprintf("tcp(%s:3306)", db.Host)
		} else {
			connStr += "tcp(localhost:3306)"
		}

		connStr += "/" + db.DBName

		return connStr, dbType, nil

	default:
		return "", dbType, fmt.Errorf("%w: %v", dblib.ErrUnsupportedDatabase, dbType)
	}
}

// connect opens and pings the database described by db.
func (db DatabaseConfig) connect(ctx context.Context, logger *zap.Logger) (*dblib.DBAdapter, error) {
	connStr, dbType, err := db.buildConnectionString()
	if err != nil {
		return nil, err
	}
	logger.Debug("connecting",
		zap.Stringer("type", dbType),
		zap.String("dbname", db.DBName),
		zap.String("host", db.Host))
	return dblib.Open(ctx, dbType, connStr, dblib.WithAdapterLogger(logger))
}
