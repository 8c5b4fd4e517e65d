// Package config provides global localdeck configuration backed by viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Defaults applied when no config file is present.
const (
	DefaultStack           = "laravel-vue"
	DefaultDatabase        = "mysql"
	DefaultBackupRetention = 10
	DefaultLogLevel        = "info"
)

// Ports holds the default host port assignments.
type Ports struct {
	HTTP     int `mapstructure:"http" json:"http"`
	HTTPS    int `mapstructure:"https" json:"https"`
	MySQL    int `mapstructure:"mysql" json:"mysql"`
	Postgres int `mapstructure:"postgres" json:"postgres"`
	Redis    int `mapstructure:"redis" json:"redis"`
	Backend  int `mapstructure:"backend" json:"backend"`
}

// Config is the global localdeck configuration.
type Config struct {
	BasePath        string `mapstructure:"base_path"`
	DefaultStack    string `mapstructure:"default_stack"`
	DefaultDatabase string `mapstructure:"default_db"`
	DefaultPorts    Ports  `mapstructure:"default_ports"`
	AutoBackup      bool   `mapstructure:"auto_backup_on_deploy"`
	BackupRetention int    `mapstructure:"backup_retention"`
	NotifyWebhook   string `mapstructure:"notify_webhook"`
	LogLevel        string `mapstructure:"log_level"`
}

// SetDefaults registers all configuration defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_stack", DefaultStack)
	v.SetDefault("default_db", DefaultDatabase)
	v.SetDefault("auto_backup_on_deploy", false)
	v.SetDefault("backup_retention", DefaultBackupRetention)
	v.SetDefault("notify_webhook", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("default_ports.http", 80)
	v.SetDefault("default_ports.https", 443)
	v.SetDefault("default_ports.mysql", 3306)
	v.SetDefault("default_ports.postgres", 5432)
	v.SetDefault("default_ports.redis", 6379)
	v.SetDefault("default_ports.backend", 8080)
}

// Load reads the global configuration from the given viper instance,
// applying defaults for any missing keys.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.BasePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.BasePath = filepath.Join(home, ".localdeck")
	} else if strings.HasPrefix(cfg.BasePath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.BasePath = filepath.Join(home, strings.TrimPrefix(cfg.BasePath, "~"))
	}

	if cfg.BackupRetention < 1 {
		cfg.BackupRetention = DefaultBackupRetention
	}

	return &cfg, nil
}

// BackupsDir returns the directory where snapshots are stored.
func (c *Config) BackupsDir() string {
	return filepath.Join(c.BasePath, "backups")
}

// ActiveProjectDir returns the directory of the single active project.
func (c *Config) ActiveProjectDir() string {
	return filepath.Join(c.BasePath, "active-project")
}

// DefaultPortsFor returns the default port assignments for a stack.
func (c *Config) DefaultPortsFor(stack string) Ports {
	p := c.DefaultPorts
	// Only one database engine is exposed per stack.
	switch stack {
	case "springboot-vue":
		p.MySQL = 0
	default:
		p.Postgres = 0
	}
	return p
}
