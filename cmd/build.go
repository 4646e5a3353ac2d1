package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/observability"
	"github.com/xkilldash9x/cursortrail/internal/pathlib"
	"github.com/xkilldash9x/cursortrail/internal/samples"
	"github.com/xkilldash9x/cursortrail/internal/segmenter"
)

func newBuildCmd() *cobra.Command {
	var inFile, storeName string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Cut a samples file into paths and save the path library",
		Long: `Reads a samples file written by "record", splits it into rest-to-rest
movements and keeps the path with the fewest steps for every distance.

The library is written to --out; a name ending in .br is brotli compressed.
With --store-name and store.url set, it is also saved to PostgreSQL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			ctx := cmd.Context()

			if inFile == "" {
				inFile = cfg.Recorder.OutFile
			}
			path, err := homedir.Expand(inFile)
			if err != nil {
				return fmt.Errorf("failed to expand samples path: %w", err)
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open samples file: %w", err)
			}
			defer f.Close()

			lib, stats, err := segmenter.BuildFromReader(ctx, samples.NewReader(f, logger), cfg.Builder.Segmenter(), logger)
			if err != nil {
				return fmt.Errorf("failed to build library: %w", err)
			}
			if err := pathlib.SaveFile(cfg.Builder.LibraryFile, lib); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "read %d samples (%d malformed, %d glitches) in %d batches\n",
				stats.Samples, stats.Malformed, stats.Glitches, stats.Batches)
			fmt.Fprintf(out, "found %d paths: %d stored, %d replaced, %d discarded\n",
				stats.PathsFound, stats.PathsStored, stats.PathsReplaced, stats.PathsDiscarded)
			fmt.Fprintf(out, "library of %d paths written to %s\n", lib.Len(), cfg.Builder.LibraryFile)

			if storeName == "" {
				return nil
			}
			if cfg.Store.URL == "" {
				logger.Warn("Skipping store upload, store.url is not set", zap.String("store_name", storeName))
				return nil
			}
			st, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := st.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := st.SaveLibrary(ctx, storeName, lib); err != nil {
				return err
			}
			fmt.Fprintf(out, "library saved to store as %q\n", storeName)
			return nil
		},
	}

	flags := buildCmd.Flags()
	flags.StringVarP(&inFile, "in", "i", "", "samples file (default recorder.out_file)")
	flags.StringP("out", "o", "", "library file to write")
	flags.StringVar(&storeName, "store-name", "", "also save the library to the store under this name")
	flags.Duration("min-delta", 0, "shortest valid time between samples")
	flags.Duration("max-delta", 0, "longest valid time between samples")
	flags.Int("max-axis-delta", 0, "largest valid move on one axis between samples")
	flags.Duration("max-rest", 0, "rest time that ends a path")
	flags.Int("max-batch-rows", 0, "samples after which a batch is split")
	flags.Duration("max-path-time", 0, "paths slower than this are discarded")
	bindFlag(flags, "out", "builder.library_file")
	bindFlag(flags, "min-delta", "builder.min_delta_time")
	bindFlag(flags, "max-delta", "builder.max_delta_time")
	bindFlag(flags, "max-axis-delta", "builder.max_single_axis_delta")
	bindFlag(flags, "max-rest", "builder.max_no_move_time")
	bindFlag(flags, "max-batch-rows", "builder.max_batch_rows")
	bindFlag(flags, "max-path-time", "builder.max_total_path_time")
	return buildCmd
}
