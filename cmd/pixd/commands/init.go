package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initForce bool

// defaultConfigFile mirrors the built-in defaults so operators can start
// from a complete, commented-out-of-the-box file.
type defaultConfigFile struct {
	LogLevel string `yaml:"log_level"`
	Storage  struct {
		Path        string `yaml:"path"`
		BusyTimeout string `yaml:"busy_timeout"`
	} `yaml:"storage"`
	Source struct {
		KeysURL         string `yaml:"keys_url"`
		TransactionsURL string `yaml:"transactions_url"`
		Timeout         string `yaml:"timeout"`
		UserAgent       string `yaml:"user_agent"`
	} `yaml:"source"`
	Sync struct {
		PollingInterval string `yaml:"polling_interval"`
		CatchupEnabled  bool   `yaml:"catchup_enabled"`
		MaxCatchupDays  int    `yaml:"max_catchup_days"`
	} `yaml:"sync"`
	Backup struct {
		Dir           string `yaml:"dir"`
		Compress      bool   `yaml:"compress"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
	API struct {
		Enabled    bool   `yaml:"enabled"`
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"api"`
	Monitoring struct {
		Enabled    bool   `yaml:"enabled"`
		ListenAddr string `yaml:"listen_addr"`
		Namespace  string `yaml:"namespace"`
	} `yaml:"monitoring"`
	Logging struct {
		Level      string `yaml:"level"`
		OutputPath string `yaml:"output_path"`
	} `yaml:"logging"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		var cfg defaultConfigFile
		cfg.LogLevel = "info"
		cfg.Storage.Path = "data/pix_orchestrator.db"
		cfg.Storage.BusyTimeout = "5s"
		cfg.Source.KeysURL = "https://olinda.bcb.gov.br/olinda/servico/Pix_DadosAbertos/versao/v1/odata/ChavesPix"
		cfg.Source.TransactionsURL = "https://olinda.bcb.gov.br/olinda/servico/Pix_DadosAbertos/versao/v1/odata/TransacoesPix"
		cfg.Source.Timeout = "30s"
		cfg.Source.UserAgent = "PixOrchestrator/1.0"
		cfg.Sync.PollingInterval = "60s"
		cfg.Sync.CatchupEnabled = true
		cfg.Sync.MaxCatchupDays = 7
		cfg.Backup.Dir = "backups"
		cfg.Backup.Compress = false
		cfg.Backup.RetentionDays = 0
		cfg.API.Enabled = true
		cfg.API.ListenAddr = ":8080"
		cfg.Monitoring.Enabled = true
		cfg.Monitoring.ListenAddr = ":9090"
		cfg.Monitoring.Namespace = "pix_orchestrator"
		cfg.Logging.Level = "info"
		cfg.Logging.OutputPath = "stdout"

		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return err
		}

		fmt.Println("Wrote", configPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
