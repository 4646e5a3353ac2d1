package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/humanoid"
	"github.com/xkilldash9x/cursortrail/internal/observability"
	"github.com/xkilldash9x/cursortrail/internal/samples"
)

func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Sample the real cursor and append it to a samples file",
		Long: `Polls the cursor position at a fixed interval and appends one CSV row per
sample. Move the mouse naturally while recording; every batch starts with a
"0,0,0" marker so later sessions can be appended to the same file.

Recording ends after --active, on Ctrl+C, or when the stop hotkey is pressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			out, writeHeader, err := openSamplesForAppend(cfg.Recorder.OutFile)
			if err != nil {
				return err
			}
			defer out.Close()

			ctx, stop := samples.StopOnHotkey(cmd.Context(), cfg.Recorder.StopKeys, logger)
			defer stop()

			rec := samples.NewRecorder(
				cfg.Recorder.Samples(cfg.Builder),
				humanoid.NewRobotgoExecutor(),
				samples.NewWriter(out, writeHeader),
				logger,
			)
			logger.Info("Recording started",
				zap.String("out_file", out.Name()),
				zap.Duration("active_time", cfg.Recorder.ActiveTime),
				zap.Strings("stop_keys", cfg.Recorder.StopKeys))

			stats, err := rec.Run(ctx)
			if err != nil {
				return fmt.Errorf("recording failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d samples in %d batches (%d off-cadence intervals) -> %s\n",
				stats.SessionID, stats.Samples, stats.Batches, stats.BadIntervals, out.Name())
			return nil
		},
	}

	recordCmd.Flags().StringP("out", "o", "", "samples file to append to")
	recordCmd.Flags().Duration("active", 0, "stop recording after this long")
	recordCmd.Flags().Duration("interval", 0, "time between two samples")
	recordCmd.Flags().Duration("batch", 0, "sampling time per written batch")
	recordCmd.Flags().StringSlice("stop-keys", nil, "hotkey chord that ends the session")
	bindFlag(recordCmd.Flags(), "out", "recorder.out_file")
	bindFlag(recordCmd.Flags(), "active", "recorder.active_time")
	bindFlag(recordCmd.Flags(), "interval", "recorder.interval")
	bindFlag(recordCmd.Flags(), "batch", "recorder.batch_period")
	bindFlag(recordCmd.Flags(), "stop-keys", "recorder.stop_keys")
	return recordCmd
}

// openSamplesForAppend opens path for appending, creating it and its
// directory as needed. The header is only wanted for an empty file.
func openSamplesForAppend(path string) (*os.File, bool, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to expand samples path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create samples directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open samples file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("failed to stat samples file: %w", err)
	}
	return f, info.Size() == 0, nil
}
