package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/backup"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/common"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup archive of the local store",
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
		archive, err := manager.Backup(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Backup written:", archive)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backup archives",
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
		archives, err := manager.List()
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Println("No backups found")
			return nil
		}
		for _, a := range archives {
			fmt.Printf("%s\t%d bytes\t%s\n", a.Name, a.Size, a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupListCmd)
	rootCmd.AddCommand(backupCmd)
}
