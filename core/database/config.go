package database

import (
	"fmt"
	"net"
	"net/url"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds storage connection settings. The postgres fields are ignored
// by the other drivers.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// Path is the SQLite database file.
	Path string `yaml:"path" envconfig:"DB_PATH"`
}

// Persistent reports whether the config selects a real database.
func (c Config) Persistent() bool {
	return c.Driver == DriverPostgres || c.Driver == DriverSQLite
}

// postgresURL is understood by both lib/pq and golang-migrate. Credentials
// are escaped, so passwords may contain any character.
func (c Config) postgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// dsn returns the database/sql driver name and data source for c.
func (c Config) dsn() (string, string, error) {
	switch c.Driver {
	case DriverPostgres:
		return DriverPostgres, c.postgresURL(), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", "", fmt.Errorf("database: sqlite path is required")
		}
		return DriverSQLite, c.Path, nil
	}
	return "", "", fmt.Errorf("database: unsupported driver %q", c.Driver)
}

func (c Config) migrateURL() string {
	if c.Driver == DriverSQLite {
		return "sqlite://" + c.Path
	}
	return c.postgresURL()
}

// target names the database in logs without credentials.
func (c Config) target() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return net.JoinHostPort(c.Host, c.Port) + "/" + c.Name
}
