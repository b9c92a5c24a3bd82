package commands

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/sliceforge/sliceforge/logging"
)

// Config is the YAML analysis configuration. Zero values defer to the
// built-in defaults of each stage.
type Config struct {
	Detect struct {
		Algorithm    string  `yaml:"algorithm"`
		Sensitivity  float64 `yaml:"sensitivity"`
		MinSpacingMs float64 `yaml:"min_spacing_ms"`
		OffsetMs     float64 `yaml:"offset_ms"`
	} `yaml:"detect"`

	Group struct {
		Layers         int       `yaml:"layers"`
		MaxLayers      int       `yaml:"max_layers"`
		Thresholds     []float64 `yaml:"thresholds"`
		LoudnessWeight float64   `yaml:"loudness_weight"`
		Workers        int       `yaml:"workers"`
		Seed           int64     `yaml:"seed"`
	} `yaml:"group"`
}

var (
	configFile string
	outputFile string
	verbose    bool

	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "sliceforge",
	Short: "Transient detection and sample grouping for sampler instruments",
	Long: `sliceforge analyzes percussive and instrumental recordings:
it detects transient onsets with sample-accurate refinement, extracts
loudness and timbre descriptors, and groups recordings into velocity
layers and round-robin sets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logging.SetLevel(logging.DebugLevel)
		} else {
			logging.SetLevel(logging.WarnLevel)
		}

		if configFile == "" {
			return nil
		}
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", configFile, err)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write JSON result to file instead of stdout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(groupCmd)
}
