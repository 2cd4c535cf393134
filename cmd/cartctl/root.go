package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appcfg "storefront/internal/infra/config"
	shared "storefront/internal/platform/di/shared"
)

// storeOpener builds the snapshot stores the commands operate on.
// The returned func releases the underlying clients.
type storeOpener func(ctx context.Context, logger *zap.Logger) (*shared.Stores, func() error, error)

type rootOptions struct {
	Format  string // "text" | "json"
	Verbose bool

	open   storeOpener
	logger *zap.Logger
}

var validFormats = []string{"text", "json"}

func newRootCommand(open storeOpener) *cobra.Command {
	opts := &rootOptions{open: open, logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "Support tooling for saved account carts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if opts.Verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				opts.logger = l
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSnapshotsCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openConfiguredStores opens the stores selected by the service config
// (SNAPSHOT_BACKEND and friends).
func openConfiguredStores(ctx context.Context, logger *zap.Logger) (*shared.Stores, func() error, error) {
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, nil, err
	}
	inf, err := shared.NewInfra(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	stores, err := shared.NewStores(ctx, inf)
	if err != nil {
		_ = inf.Close()
		return nil, nil, err
	}
	return stores, inf.Close, nil
}
