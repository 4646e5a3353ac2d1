package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/cursortrail/internal/observability"
	"github.com/xkilldash9x/cursortrail/internal/pathlib"
)

// histogramWidth is the bar length of the fullest bucket.
const histogramWidth = 40

// Bucket counts the paths whose distance falls in [From, To].
type Bucket struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Paths int `json:"paths"`
}

// Inspection summarizes a library for humans and scripts.
type Inspection struct {
	Source      string   `json:"source"`
	Paths       int      `json:"paths"`
	MinDistance int      `json:"min_distance"`
	MaxDistance int      `json:"max_distance"`
	MinSteps    int      `json:"min_steps"`
	MaxSteps    int      `json:"max_steps"`
	MeanSteps   float64  `json:"mean_steps"`
	Buckets     []Bucket `json:"buckets"`
}

func inspectLibrary(source string, lib *pathlib.Library, bucketSize int) Inspection {
	ins := Inspection{Source: source, Paths: lib.Len()}
	entries := lib.Entries()
	if len(entries) == 0 || bucketSize <= 0 {
		return ins
	}

	ins.MinDistance = entries[0].Summary.Distance
	ins.MaxDistance = entries[len(entries)-1].Summary.Distance
	ins.MinSteps = len(entries[0].Path)
	total := 0
	for _, e := range entries {
		n := len(e.Path)
		total += n
		ins.MinSteps = min(ins.MinSteps, n)
		ins.MaxSteps = max(ins.MaxSteps, n)

		idx := e.Summary.Distance/bucketSize - ins.MinDistance/bucketSize
		for len(ins.Buckets) <= idx {
			from := (ins.MinDistance/bucketSize + len(ins.Buckets)) * bucketSize
			ins.Buckets = append(ins.Buckets, Bucket{From: from, To: from + bucketSize - 1})
		}
		ins.Buckets[idx].Paths++
	}
	ins.MeanSteps = float64(total) / float64(len(entries))
	return ins
}

func writeInspection(out io.Writer, ins Inspection) {
	fmt.Fprintf(out, "library:  %s\n", ins.Source)
	fmt.Fprintf(out, "paths:    %d\n", ins.Paths)
	if ins.Paths == 0 {
		return
	}
	fmt.Fprintf(out, "distance: %d..%d px\n", ins.MinDistance, ins.MaxDistance)
	fmt.Fprintf(out, "steps:    %d..%d (mean %.1f)\n", ins.MinSteps, ins.MaxSteps, ins.MeanSteps)

	fullest := 0
	for _, b := range ins.Buckets {
		fullest = max(fullest, b.Paths)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, b := range ins.Buckets {
		bar := strings.Repeat("#", b.Paths*histogramWidth/fullest)
		fmt.Fprintf(tw, "%d\t-%d\t %d\t %s\n", b.From, b.To, b.Paths, bar)
	}
	tw.Flush()
}

func newInspectCmd() *cobra.Command {
	var (
		fromStore  bool
		bucketSize int
		asJSON     bool
	)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show what a path library covers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if bucketSize <= 0 {
				return fmt.Errorf("--bucket must be positive, got %d", bucketSize)
			}
			lib, source, err := loadLibrary(cmd.Context(), cfg, fromStore, observability.GetLogger())
			if err != nil {
				return err
			}

			ins := inspectLibrary(source, lib, bucketSize)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ins)
			}
			writeInspection(cmd.OutOrStdout(), ins)
			return nil
		},
	}

	inspectCmd.Flags().StringP("library", "l", "", "library file to inspect")
	inspectCmd.Flags().BoolVar(&fromStore, "from-store", false, "inspect the library named store.library_name in the store")
	inspectCmd.Flags().String("store-name", "", "library name in the store")
	inspectCmd.Flags().IntVar(&bucketSize, "bucket", 100, "histogram bucket width in pixels")
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	bindFlag(inspectCmd.Flags(), "library", "replay.library_file")
	bindFlag(inspectCmd.Flags(), "store-name", "store.library_name")
	return inspectCmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the libraries saved in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			st, closeStore, err := openStore(cmd.Context(), cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeStore()

			infos, err := st.ListLibraries(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPATHS\tVERSION\tBUILT")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", info.Name, info.EntryCount, info.Version, info.BuiltAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}
