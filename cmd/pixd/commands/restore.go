package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/backup"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Replace the local store with a backup archive",
	Long: `Validates the archive and replaces the local store with its
contents. The previous store is kept next to the live file with a
.restore-backup suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		st, err := store.Open(cfg.Storage.Path, cfg.Storage.BusyTimeout, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		manager := backup.NewManager(cfg.Backup, st, common.NewGate(), nil, logger)
		if err := manager.Restore(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Println("Store restored from", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
