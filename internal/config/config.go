package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration. It is loaded once at startup
// and passed into constructors; nothing reads configuration ambiently.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Storage    StorageConfig    `mapstructure:"storage"`
	Source     SourceConfig     `mapstructure:"source"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Backup     BackupConfig     `mapstructure:"backup"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig locates the SQLite artifact.
type StorageConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// SourceConfig describes the Olinda open-data endpoints.
type SourceConfig struct {
	KeysURL         string        `mapstructure:"keys_url"`
	TransactionsURL string        `mapstructure:"transactions_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// SyncConfig holds the scheduling and catch-up policy. The polling interval
// here is the single source of truth for the scheduler cadence.
type SyncConfig struct {
	PollingInterval time.Duration `mapstructure:"polling_interval"`
	CatchupEnabled  bool          `mapstructure:"catchup_enabled"`
	MaxCatchupDays  int           `mapstructure:"max_catchup_days"`
}

// BackupConfig controls snapshot placement and retention.
type BackupConfig struct {
	Dir           string `mapstructure:"dir"`
	Compress      bool   `mapstructure:"compress"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// APIConfig is the operator HTTP surface.
type APIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// MonitoringConfig is the Prometheus exporter.
type MonitoringConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Namespace  string `mapstructure:"namespace"`
}

// LoggingConfig controls zap output and file rotation.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	OutputPath  string `mapstructure:"output_path"`
	Development bool   `mapstructure:"development"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

// Load reads the configuration file, applies defaults and environment
// overrides (PIXD_ prefix), and validates the result. A missing config file
// is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PIXD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("storage.path", "data/pix_orchestrator.db")
	v.SetDefault("storage.busy_timeout", "5s")

	v.SetDefault("source.keys_url", "https://olinda.bcb.gov.br/olinda/servico/Pix_DadosAbertos/versao/v1/odata/ChavesPix")
	v.SetDefault("source.transactions_url", "https://olinda.bcb.gov.br/olinda/servico/Pix_DadosAbertos/versao/v1/odata/TransacoesPix")
	v.SetDefault("source.timeout", "30s")
	v.SetDefault("source.user_agent", "PixOrchestrator/1.0")

	v.SetDefault("sync.polling_interval", "60s")
	v.SetDefault("sync.catchup_enabled", true)
	v.SetDefault("sync.max_catchup_days", 7)

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.compress", false)
	v.SetDefault("backup.retention_days", 0)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen_addr", ":8080")

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.listen_addr", ":9090")
	v.SetDefault("monitoring.namespace", "pix_orchestrator")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

func validate(cfg *Config) error {
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	if cfg.Source.KeysURL == "" || cfg.Source.TransactionsURL == "" {
		return fmt.Errorf("source.keys_url and source.transactions_url are required")
	}
	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}

	if cfg.Sync.PollingInterval <= 0 {
		return fmt.Errorf("sync.polling_interval must be positive")
	}
	if cfg.Sync.MaxCatchupDays < 1 {
		return fmt.Errorf("sync.max_catchup_days must be at least 1")
	}

	if cfg.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if cfg.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days cannot be negative")
	}

	if cfg.API.Enabled && cfg.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr is required when API is enabled")
	}
	if cfg.Monitoring.Enabled && cfg.Monitoring.ListenAddr == "" {
		return fmt.Errorf("monitoring.listen_addr is required when monitoring is enabled")
	}

	return nil
}
