package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/app"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the synchronization daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		application.Start()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received signal", zap.String("signal", sig.String()))

		application.Shutdown()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
