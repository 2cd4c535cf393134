package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cartdom "storefront/internal/domain/cart"
	shared "storefront/internal/platform/di/shared"
)

const deleteConcurrency = 8

var errNoSweeper = errors.New("snapshot backend cannot enumerate snapshots")

func newSnapshotsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and maintain saved account carts",
	}
	cmd.AddCommand(
		newSnapshotsListCommand(opts),
		newSnapshotsGetCommand(opts),
		newSnapshotsPutCommand(opts),
		newSnapshotsDeleteCommand(opts),
		newSnapshotsSweepCommand(opts),
	)
	return cmd
}

// withStores opens the stores for the duration of fn.
func withStores(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *shared.Stores) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stores, closeFn, err := opts.open(ctx, opts.logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(ctx, stores)
}

func newSnapshotsListCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, opts, func(ctx context.Context, s *shared.Stores) error {
				if s.Sweeper == nil {
					return errNoSweeper
				}
				infos, err := s.Sweeper.List(ctx, limit)
				if err != nil {
					return err
				}
				return printInfos(cmd.OutOrStdout(), opts.Format, infos)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of snapshots (0 = backend default)")
	return cmd
}

func newSnapshotsGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the snapshot saved for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			return withStores(cmd, opts, func(ctx context.Context, s *shared.Stores) error {
				c, err := s.Snapshots.Read(ctx, key)
				if err != nil {
					return err
				}
				if c == nil {
					return fmt.Errorf("no snapshot for %q", key)
				}
				return printCart(cmd.OutOrStdout(), opts.Format, *c)
			})
		},
	}
}

func newSnapshotsPutCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "put <key>",
		Short: "Overwrite a snapshot from a JSON cart ({\"lines\": [...]})",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			c, err := cartdom.Decode(raw)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			return withStores(cmd, opts, func(ctx context.Context, s *shared.Stores) error {
				if err := s.Snapshots.Write(ctx, key, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d lines)\n", key, c.LineCount())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "cart JSON file (- for stdin)")
	return cmd
}

func newSnapshotsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, opts, func(ctx context.Context, s *shared.Stores) error {
				g, gctx := errgroup.WithContext(ctx)
				g.SetLimit(deleteConcurrency)
				for _, a := range args {
					key := strings.TrimSpace(a)
					g.Go(func() error {
						if err := s.Snapshots.Delete(gctx, key); err != nil {
							return fmt.Errorf("delete %s: %w", key, err)
						}
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshot(s)\n", len(args))
				return nil
			})
		},
	}
}

func newSnapshotsSweepCommand(opts *rootOptions) *cobra.Command {
	var (
		at     string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete snapshots whose expiresAt has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if strings.TrimSpace(at) != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.UTC()
			}
			return withStores(cmd, opts, func(ctx context.Context, s *shared.Stores) error {
				if s.Sweeper == nil {
					return errNoSweeper
				}
				if dryRun {
					infos, err := s.Sweeper.List(ctx, 0)
					if err != nil {
						return err
					}
					expired := make([]cartdom.SnapshotInfo, 0, len(infos))
					for _, in := range infos {
						if !in.ExpiresAt.IsZero() && !in.ExpiresAt.After(now) {
							expired = append(expired, in)
						}
					}
					return printInfos(cmd.OutOrStdout(), opts.Format, expired)
				}
				n, err := s.Sweeper.DeleteExpired(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "swept %d snapshot(s) expired at %s\n", n, now.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "treat this RFC3339 time as now")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list what would be deleted")
	return cmd
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}

func printCart(w io.Writer, format string, c cartdom.Cart) error {
	if format == "json" {
		raw, err := cartdom.Encode(c)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tUNIT PRICE")
	for _, l := range c.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice)
	}
	fmt.Fprintf(tw, "total\t\t%d\t%d\n", c.TotalQuantity(), c.Subtotal())
	return tw.Flush()
}

type snapshotInfoJSON struct {
	Key       string    `json:"key"`
	Lines     int       `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func printInfos(w io.Writer, format string, infos []cartdom.SnapshotInfo) error {
	if format == "json" {
		out := make([]snapshotInfoJSON, 0, len(infos))
		for _, in := range infos {
			out = append(out, snapshotInfoJSON(in))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLINES\tUPDATED\tEXPIRES")
	for _, in := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", in.Key, in.Lines,
			in.UpdatedAt.Format(time.RFC3339), in.ExpiresAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
