package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicomcore/cache"
	"github.com/caio-sobreiro/dicomcore/client"
	"github.com/caio-sobreiro/dicomcore/dimse"
	"github.com/caio-sobreiro/dicomcore/index"
	"github.com/caio-sobreiro/dicomcore/server"
	"github.com/caio-sobreiro/dicomcore/services"
	"github.com/caio-sobreiro/dicomcore/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DICOM archive node",
	Long: `Accept associations on the configured port and serve C-ECHO, C-STORE,
C-FIND, C-MOVE and storage commitment (N-ACTION / N-EVENT-REPORT).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		registry, closeNode, err := buildNode(ctx)
		if err != nil {
			return err
		}
		defer closeNode()

		address := net.JoinHostPort("", strconv.Itoa(cfg.DICOM.Port))
		err = server.ListenAndServe(ctx, address, cfg.DICOM.AETitle, registry,
			server.WithLogger(logger),
			server.WithAcceptor(cfg.Acceptor()),
			server.WithReadTimeout(cfg.Timeout()),
			server.WithWriteTimeout(cfg.Timeout()),
			server.WithMaxAssociations(cfg.DICOM.Threads))
		switch {
		case err == nil, errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
			logger.Info("Server stopped")
			return nil
		default:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildNode opens the configured storage area, index and cache, and
// registers the DIMSE services on top of them. The returned function
// releases them.
func buildNode(ctx context.Context) (*services.Registry, func(), error) {
	area, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	idx, err := index.Open(ctx, cfg.IndexOptions())
	if err != nil {
		closeIfCloser(area)
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	parsed, err := cache.New(cfg.Cache.MaxBytes)
	if err != nil {
		closeIfCloser(area)
		closeIfCloser(idx)
		return nil, nil, err
	}

	store := services.NewStoreService(area, idx,
		services.WithParsedCache(parsed),
		services.WithEnvironment(env),
		services.WithStoreLogger(logger))
	funnel := client.NewFunnel(0, logger)
	resolve := func(aet string) (client.RemoteModality, error) {
		return cfg.Remote(aet)
	}
	params := cfg.Parameters(client.RemoteModality{}, logger)

	registry := services.NewRegistry()
	registry.RegisterHandler(dimse.CEchoRQ, services.NewEchoService(logger))
	registry.RegisterHandler(dimse.CStoreRQ, store)
	registry.RegisterHandler(dimse.CFindRQ, services.NewFindService(idx, cfg.DICOM.AETitle, logger))
	registry.RegisterHandler(dimse.CMoveRQ, services.NewMoveService(store, resolve, params))
	registry.RegisterHandler(dimse.NActionRQ, services.NewCommitmentService(store, funnel, resolve, params))
	registry.RegisterHandler(dimse.NEventReportRQ, services.NewCommitmentReportService(
		func(from string, report client.CommitmentReport) {
			failed := 0
			for _, o := range report.Outcomes {
				if o.FailureReason != 0 {
					failed++
				}
			}
			logger.Info("Storage commitment report",
				"from", from, "transaction_uid", report.TransactionUID,
				"instances", len(report.Outcomes), "failed", failed)
		}, logger))

	closeNode := func() {
		funnel.Close()
		closeIfCloser(idx)
		closeIfCloser(area)
	}
	return registry, closeNode, nil
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}
}
