package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/tempmail-bot/core/config"
	coredatabase "github.com/m3rciful/tempmail-bot/core/database"
)

const (
	defaultMailTimeoutSeconds = 15
	defaultSQLitePath         = "tempmail.db"
)

// MailConfig points the bot at a mail.tm compatible API.
type MailConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"MAILTM_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"MAILTM_TIMEOUT_SECONDS"`
	// DeleteRemote removes the provider account along with the address; nil means true.
	DeleteRemote *bool `yaml:"delete_remote" envconfig:"MAILTM_DELETE_REMOTE"`
}

// Config is the full bot configuration: the shared core sections plus
// mail provider and storage settings.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Mail    MailConfig          `yaml:"mail"`
	Storage coredatabase.Config `yaml:"storage"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// DeleteRemote reports whether deleting an address also deletes the provider account.
func (c *Config) DeleteRemote() bool {
	return c.Mail.DeleteRemote == nil || *c.Mail.DeleteRemote
}

// Load reads the YAML file at path, overlays the environment, and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	cfg.Mail.BaseURL = strings.TrimSpace(cfg.Mail.BaseURL)
	if cfg.Mail.TimeoutSeconds <= 0 {
		cfg.Mail.TimeoutSeconds = defaultMailTimeoutSeconds
	}

	st := &cfg.Storage
	st.Driver = strings.ToLower(strings.TrimSpace(st.Driver))
	switch st.Driver {
	case "", coredatabase.DriverMemory:
		st.Driver = coredatabase.DriverMemory
	case coredatabase.DriverSQLite:
		if strings.TrimSpace(st.Path) == "" {
			st.Path = defaultSQLitePath
		}
	case coredatabase.DriverPostgres:
		if st.Host == "" || st.Name == "" {
			return fmt.Errorf("storage.host and storage.name are required for postgres")
		}
		if st.Port == "" {
			st.Port = "5432"
		}
		if st.SSLMode == "" {
			st.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, sqlite, postgres", cfg.Storage.Driver)
	}
	return nil
}
