// Filter command: clip building detections to raster extents.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"github.com/geoforge/roofmat/internal/geo"
)

var (
	filterDetections string
	filterRaster     string
	filterRasterDir  string
	filterOut        string
	filterOutDir     string
	filterMode       string
	filterWorkers    int
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep only detections that fall inside a raster's extent",
	Long: `Filter reads a GeoJSON file of building detections and keeps the
features that fall inside a raster's georeferenced extent. With
--raster-dir, every GeoTIFF in the directory is filtered against
concurrently and one output file per raster is written to --out-dir.

Extents come from the GeoTIFF header, falling back to an ESRI world
file next to the raster.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := geo.Mode(filterMode)
		if !geo.ValidMode(mode) {
			fmt.Fprintf(os.Stderr, "filter: unknown mode %q (use centroid or intersects)\n", filterMode)
			os.Exit(exitUserError)
		}
		switch {
		case filterRaster == "" && filterRasterDir == "":
			fmt.Fprintln(os.Stderr, "filter: --raster or --raster-dir is required")
			os.Exit(exitUserError)
		case filterRaster != "" && filterRasterDir != "":
			fmt.Fprintln(os.Stderr, "filter: --raster and --raster-dir are mutually exclusive")
			os.Exit(exitUserError)
		case filterRasterDir != "" && filterOutDir == "":
			fmt.Fprintln(os.Stderr, "filter: --raster-dir needs --out-dir")
			os.Exit(exitUserError)
		}

		fc, err := geo.LoadFeatures(filterDetections)
		if err != nil {
			fmt.Fprintln(os.Stderr, "filter:", err)
			os.Exit(exitUserError)
		}

		if filterRaster != "" {
			return filterSingle(fc, mode)
		}
		return filterBatch(cmd, fc, mode)
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterDetections, "detections", "", "building detections GeoJSON file (required)")
	filterCmd.Flags().StringVar(&filterRaster, "raster", "", "raster to filter against")
	filterCmd.Flags().StringVar(&filterRasterDir, "raster-dir", "", "directory of rasters to filter against")
	filterCmd.Flags().StringVar(&filterOut, "out", "", "output GeoJSON path (default: stdout)")
	filterCmd.Flags().StringVar(&filterOutDir, "out-dir", "", "output directory for --raster-dir")
	filterCmd.Flags().StringVar(&filterMode, "mode", string(geo.ModeCentroid), "containment test: centroid or intersects")
	filterCmd.Flags().IntVar(&filterWorkers, "workers", 4, "concurrent rasters for --raster-dir")

	filterCmd.MarkFlagRequired("detections")
}

func filterSingle(fc *geojson.FeatureCollection, mode geo.Mode) error {
	ext, err := geo.RasterExtent(filterRaster)
	if err != nil {
		fmt.Fprintln(os.Stderr, "filter:", err)
		os.Exit(exitUserError)
	}

	kept := geo.FilterToExtent(fc, ext, mode)
	fmt.Fprintf(os.Stderr, "Kept %d of %d features\n", len(kept.Features), len(fc.Features))

	if filterOut == "" {
		return printJSON(kept)
	}
	if err := geo.SaveFeatures(filterOut, kept); err != nil {
		fatalf(exitSysError, "write %s: %s", filterOut, err)
	}
	fmt.Println("Wrote", filterOut)
	return nil
}

func filterBatch(cmd *cobra.Command, fc *geojson.FeatureCollection, mode geo.Mode) error {
	rasters, err := listRasters(filterRasterDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "filter:", err)
		os.Exit(exitUserError)
	}
	if len(rasters) == 0 {
		fmt.Fprintf(os.Stderr, "filter: no rasters in %s\n", filterRasterDir)
		os.Exit(exitUserError)
	}

	results, err := geo.FilterToRasters(cmd.Context(), rasters, fc, mode, filterWorkers)
	if err != nil {
		fatalf(exitSysError, "filter rasters: %s", err)
	}

	if err := os.MkdirAll(filterOutDir, 0o755); err != nil {
		fatalf(exitSysError, "create %s: %s", filterOutDir, err)
	}
	for _, res := range results {
		base := strings.TrimSuffix(filepath.Base(res.RasterPath), filepath.Ext(res.RasterPath))
		outPath := filepath.Join(filterOutDir, base+".geojson")
		if err := geo.SaveFeatures(outPath, res.Features); err != nil {
			fatalf(exitSysError, "write %s: %s", outPath, err)
		}
		fmt.Printf("%s: kept %d features\n", outPath, len(res.Features.Features))
	}
	return nil
}

// listRasters returns the TIFF files directly inside dir, sorted.
func listRasters(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var rasters []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff":
			rasters = append(rasters, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(rasters)
	return rasters, nil
}
