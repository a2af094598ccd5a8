package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/summary"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

func newExtractCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file-or-dir>...",
		Short: "Extract every document under the given paths as one batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := g.setup(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.extract(ctx, cmd.OutOrStdout(), args, g.skipHidden, g.out)
		},
	}
}

func (r *runtime) extract(ctx context.Context, out io.Writer, paths []string, skipHidden bool, dest string) error {
	docs, _, stats, err := r.ingestor.CollectPaths(ctx, paths, skipHidden)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no PDF or image documents found", common.ErrInvalidInput)
	}
	fmt.Fprintf(out, "Processing %d document(s) (%d duplicate(s) skipped, %d unreadable)\n",
		len(docs), stats.Deduplicated, stats.Failed)

	res, err := r.processor.ProcessBatch(ctx, core.BatchRequest{Documents: docs})
	if err != nil {
		fmt.Fprintln(out, common.UserMessage(err))
		return err
	}
	fmt.Fprintf(out, "Extracted %d record(s)\n", len(res.Records))

	all, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	printSummary(out, summary.Generate(all))

	path, err := r.writeExport(ctx, dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func printSummary(out io.Writer, s entity.ValidationSummary) {
	fmt.Fprintf(out, "Total records: %d\n", s.TotalRecords)
	if s.Clean() {
		fmt.Fprintln(out, "No duplicates or anomalies found")
		return
	}
	if len(s.DuplicateObjectIDs) > 0 {
		fmt.Fprintf(out, "Duplicate NOPs (%d):\n", len(s.DuplicateObjectIDs))
		for _, nop := range s.DuplicateObjectIDs {
			fmt.Fprintf(out, "  - %s\n", nop)
		}
	}
	if len(s.Anomalies) > 0 {
		fmt.Fprintf(out, "Anomalies (%d):\n", len(s.Anomalies))
		for _, a := range s.Anomalies {
			fmt.Fprintf(out, "  - %s\n", a)
		}
	}
}
