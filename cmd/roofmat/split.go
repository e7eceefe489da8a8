// Split commands: build and inspect tile split files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/split"
)

var (
	splitTilesFile string
	splitOut       string
	splitRatiosArg string
	splitSeed      int64
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Build and inspect tile split files",
}

var splitMakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Build a tile split file from a tile ID list",
	Long: `Make reads tile IDs (one per line) from --tiles-file, shuffles them
with --seed, partitions them by --ratios, and writes the split YAML to
--out. The same tile list, ratios, and seed always produce the same
split.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tiles, err := readTileList(splitTilesFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "split make:", err)
			os.Exit(exitUserError)
		}
		r, err := parseRatios(splitRatiosArg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "split make:", err)
			os.Exit(exitUserError)
		}
		s, err := split.Make(tiles, r, splitSeed)
		if err != nil {
			fmt.Fprintln(os.Stderr, "split make:", err)
			os.Exit(exitUserError)
		}
		if err := split.Save(splitOut, s); err != nil {
			fatalf(exitSysError, "write %s: %s", splitOut, err)
		}
		printSplitStats(s.Stats())
		fmt.Println("Wrote", splitOut)
		return nil
	},
}

var splitCheckCmd = &cobra.Command{
	Use:   "check <split-file>",
	Short: "Validate a tile split file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := split.Load(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "split check:", err)
			os.Exit(exitUserError)
		}
		if err := s.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "split check:", err)
			os.Exit(exitUserError)
		}
		fmt.Printf("%s: ok (%d tiles)\n", args[0], s.Total())
		return nil
	},
}

var splitStatsCmd = &cobra.Command{
	Use:   "stats <split-file>",
	Short: "Print subset sizes of a tile split file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := split.Load(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "split stats:", err)
			os.Exit(exitUserError)
		}
		if flagJSON {
			return printJSON(s.Stats())
		}
		printSplitStats(s.Stats())
		return nil
	},
}

func init() {
	splitMakeCmd.Flags().StringVar(&splitTilesFile, "tiles-file", "", "tile ID list, one per line (required)")
	splitMakeCmd.Flags().StringVar(&splitOut, "out", "", "split YAML output path (required)")
	splitMakeCmd.Flags().StringVar(&splitRatiosArg, "ratios", "0.7,0.15,0.15", "train,val,test ratios")
	splitMakeCmd.Flags().Int64Var(&splitSeed, "seed", 42, "shuffle seed")
	splitMakeCmd.MarkFlagRequired("tiles-file")
	splitMakeCmd.MarkFlagRequired("out")

	splitCmd.AddCommand(splitMakeCmd)
	splitCmd.AddCommand(splitCheckCmd)
	splitCmd.AddCommand(splitStatsCmd)
}

func readTileList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tiles []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			tiles = append(tiles, line)
		}
	}
	return tiles, nil
}

func printSplitStats(st split.Stats) {
	fmt.Printf("train %d (%.1f%%) | val %d (%.1f%%) | test %d (%.1f%%) | total %d\n",
		st.Train, st.TrainFrac*100, st.Val, st.ValFrac*100, st.Test, st.TestFrac*100, st.Total)
}
