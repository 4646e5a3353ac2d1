package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
	"github.com/xkilldash9x/cursortrail/internal/humanoid"
	"github.com/xkilldash9x/cursortrail/internal/observability"
)

// bot is the part of the humanoid the replay shell drives.
type bot interface {
	EnsureMoveTo(ctx context.Context, dst geometry.Position) error
	MoveNear(ctx context.Context, dst geometry.Position) error
	LeftClick(ctx context.Context) error
	RightClick(ctx context.Context) error
	ClickKey(ctx context.Context, key string) error
	PanLeft(ctx context.Context, degrees float64) error
	PanRight(ctx context.Context, degrees float64) error
	Position(ctx context.Context) (geometry.Position, error)
}

const replayHelp = `commands:
  X,Y           move to the point
  near X,Y      move to within a pixel of the point
  click         left click
  rclick        right click
  key NAME      tap a key
  pan left|right DEGREES
  pos           print the cursor position
  quit
`

func newReplayCmd() *cobra.Command {
	var fromStore bool

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Drive the real cursor with recorded paths, reading commands from stdin",
		Long:  "Loads a path library and executes one command per input line.\n\n" + replayHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			ctx := cmd.Context()

			lib, source, err := loadLibrary(ctx, cfg, fromStore, logger)
			if err != nil {
				return err
			}
			h, err := humanoid.New(cfg.Replay.Humanoid(), lib, humanoid.NewRobotgoExecutor(), logger)
			if err != nil {
				return err
			}
			logger.Info("Replay ready", zap.String("library", source), zap.Int("paths", lib.Len()))
			return runReplay(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), h)
		},
	}

	replayCmd.Flags().StringP("library", "l", "", "library file to replay")
	replayCmd.Flags().BoolVar(&fromStore, "from-store", false, "load the library named store.library_name from the store")
	replayCmd.Flags().String("store-name", "", "library name in the store")
	bindFlag(replayCmd.Flags(), "library", "replay.library_file")
	bindFlag(replayCmd.Flags(), "store-name", "store.library_name")
	return replayCmd
}

// runReplay executes commands from in until EOF or "quit". A failed command is
// reported and the shell carries on; only cancellation ends it early.
func runReplay(ctx context.Context, in io.Reader, out io.Writer, b bot) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		err := runReplayCommand(ctx, line, out, b)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		pos, err := b.Position(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ok %s\n", pos)
	}
	return scanner.Err()
}

func runReplayCommand(ctx context.Context, line string, out io.Writer, b bot) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "click":
		return b.LeftClick(ctx)
	case "rclick":
		return b.RightClick(ctx)
	case "pos":
		return nil
	case "help":
		fmt.Fprint(out, replayHelp)
		return nil
	case "key":
		if len(fields) != 2 {
			return fmt.Errorf("usage: key NAME")
		}
		return b.ClickKey(ctx, fields[1])
	case "pan":
		if len(fields) != 3 {
			return fmt.Errorf("usage: pan left|right DEGREES")
		}
		degrees, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("invalid degrees %q", fields[2])
		}
		switch fields[1] {
		case "left":
			return b.PanLeft(ctx, degrees)
		case "right":
			return b.PanRight(ctx, degrees)
		}
		return fmt.Errorf("unknown pan direction %q", fields[1])
	case "near":
		dst, err := parsePoint(strings.Join(fields[1:], ""))
		if err != nil {
			return err
		}
		return b.MoveNear(ctx, dst)
	}

	dst, err := parsePoint(strings.Join(fields, ""))
	if err != nil {
		return err
	}
	return b.EnsureMoveTo(ctx, dst)
}

// parsePoint parses "X,Y".
func parsePoint(s string) (geometry.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Position{}, fmt.Errorf("expected X,Y, got %q", s)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return geometry.Position{}, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return geometry.Position{}, fmt.Errorf("invalid y %q", ys)
	}
	return geometry.Position{X: x, Y: y}, nil
}
