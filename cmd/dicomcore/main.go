// Command dicomcore runs a DICOM archive node and the network client
// operations against configured modalities.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/config"
	"github.com/caio-sobreiro/dicomcore/dicom"
)

var (
	configPath string
	remoteName string

	cfg    *config.Config
	env    *dicom.Environment
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "dicomcore",
	Short:         "DICOM archive node and network client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cmd.Context(), configPath, config.Options{})
		if err != nil {
			return err
		}
		cfg = loaded
		logger = cfg.Logger(os.Stderr)
		slog.SetDefault(logger)

		env, err = cfg.Environment()
		if err != nil {
			return err
		}
		dicom.SetDefault(env)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("DICOMCORE_CONFIG"),
		"YAML configuration `file`")
}

// remoteParameters resolves the --modality flag of a client command.
func remoteParameters() (client.Parameters, error) {
	if remoteName == "" {
		return client.Parameters{}, fmt.Errorf("--modality is required")
	}
	remote, err := cfg.Remote(remoteName)
	if err != nil {
		return client.Parameters{}, err
	}
	return cfg.Parameters(remote, logger), nil
}

func addModalityFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&remoteName, "modality", "m", "",
		"configured modality, by name or AE title")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
