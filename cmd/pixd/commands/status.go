package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record counts and the last successful sync",
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

		ctx := cmd.Context()
		keys, err := st.CountKeys(ctx, "")
		if err != nil {
			return err
		}
		txs, err := st.CountTransactions(ctx)
		if err != nil {
			return err
		}
		state, err := st.ReadSyncState(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Store:", cfg.Storage.Path)
		fmt.Println("Keys:", keys)
		fmt.Println("Transactions:", txs)
		if state.LastSuccessfulSync != nil {
			fmt.Println("Last successful sync:", state.LastSuccessfulSync.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Println("Last successful sync: never")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
