package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sliceforge/sliceforge/decode"
	"github.com/sliceforge/sliceforge/onset"
)

var (
	detectAlgorithm   string
	detectSensitivity float64
	detectSpacingMs   float64
	detectOffsetMs    float64
)

// detectResult is the JSON shape written by the detect command
type detectResult struct {
	File       string         `json:"file"`
	SampleRate int            `json:"sample_rate"`
	Duration   float64        `json:"duration_sec"`
	Algorithm  string         `json:"algorithm"`
	Markers    []onset.Marker `json:"markers"`
	Regions    []onset.Region `json:"regions"`
	Outliers   []int          `json:"outlier_regions,omitempty"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Detect and refine transient onsets in a recording",
	Long: `Detect transient onsets in an audio file, refine each one to a
click-free cut point and derive the slice regions between them.

Example:
  sliceforge detect drums.wav --algorithm superflux --sensitivity 1.2 -o markers.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		algoName := detectAlgorithm
		if !cmd.Flags().Changed("algorithm") && cfg.Detect.Algorithm != "" {
			algoName = cfg.Detect.Algorithm
		}
		algorithm, err := onset.ParseAlgorithm(algoName)
		if err != nil {
			return err
		}

		opts := onset.DefaultOptions()
		opts.Algorithm = algorithm
		opts.Sensitivity = pickFloat(cmd, "sensitivity", detectSensitivity, cfg.Detect.Sensitivity)
		opts.OffsetMs = pickFloat(cmd, "offset-ms", detectOffsetMs, cfg.Detect.OffsetMs)
		if spacing := pickFloat(cmd, "min-spacing-ms", detectSpacingMs, cfg.Detect.MinSpacingMs); spacing > 0 {
			opts.MinSpacingSec = spacing / 1000.0
		}

		sig, err := decode.File(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}

		markers := onset.DetectMarkers(sig, opts)
		regions := onset.Regions(markers, len(sig.Samples))

		return writeResult(detectResult{
			File:       path,
			SampleRate: sig.SampleRate,
			Duration:   sig.Duration(),
			Algorithm:  algorithm.String(),
			Markers:    markers,
			Regions:    regions,
			Outliers:   onset.OutlierRegions(regions),
		})
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectAlgorithm, "algorithm", "a", "superflux",
		"detection algorithm: energy, superflux, ircam, multiscale")
	detectCmd.Flags().Float64VarP(&detectSensitivity, "sensitivity", "s", 1.0,
		"detection sensitivity (higher finds more onsets)")
	detectCmd.Flags().Float64Var(&detectSpacingMs, "min-spacing-ms", 0,
		"minimum spacing between onsets in milliseconds (0 = algorithm default)")
	detectCmd.Flags().Float64Var(&detectOffsetMs, "offset-ms", 0,
		"shift every cut point by this many milliseconds (negative = earlier)")
}

// pickFloat prefers an explicitly set flag, then the config file, then
// the flag default
func pickFloat(cmd *cobra.Command, flag string, flagValue, configValue float64) float64 {
	if cmd.Flags().Changed(flag) {
		return flagValue
	}
	if configValue != 0 {
		return configValue
	}
	return flagValue
}
