package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/ingest"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var debounce time.Duration
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Extract new documents as they land in the given directories",
		Long: `watch runs a batch for every burst of new documents and rewrites the export
after each successful batch. A failed batch is reported and skipped; watching
continues until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initial,
				Debounce:    debounce,
				SkipHidden:  g.skipHidden,
			}, rt.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %v (Ctrl+C to stop)\n", args)

			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					rt.logger.Warn("watch.error", "error", err)
				case batch, ok := <-events:
					if !ok {
						return nil
					}
					if err := rt.extract(ctx, out, batch, g.skipHidden, g.out); err != nil {
						rt.logger.Error("watch.batch.failed", "files", len(batch), "code", common.ErrorCode(err), "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a burst of files is processed")
	cmd.Flags().BoolVar(&initial, "initial-scan", false, "also process documents already present")
	return cmd
}
