package cli

import (
	"github.com/spf13/cobra"

	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
)

// blocksCommand creates the blocks command for block-outline generation.
func (c *CLI) blocksCommand() *cobra.Command {
	var (
		roadsPath string
		output    string
		noTUI     bool
	)
	opts := pipeline.Options{
		BufferDistance:  10,
		ExtentBufferPct: pipeline.DefaultExtentBufferPct,
		Mode:            pipeline.ModeBlocks,
	}

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Generate road-enclosed block outlines",
		Long: `Generate block outlines from a road centerline network.

Roads are buffered into a dissolved road reserve, and the blocks are the
negative space of the reserve within a padded extent, split into individual
polygons. No building points are needed. The area filter is off unless
--min-area or --max-area is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.applyConfig(cmd, &opts); err != nil {
				return err
			}
			// Blocks mode filters only on request; config defaults for
			// parcel areas must not silently enable it.
			if !cmd.Flags().Changed("min-area") && !cmd.Flags().Changed("max-area") {
				opts.MinArea = 0
				opts.MaxArea = 0
			}
			return c.runGenerate(cmd.Context(), generateParams{
				roadsPath: roadsPath,
				output:    output,
				opts:      opts,
				noTUI:     noTUI,
			})
		},
	}

	cmd.Flags().StringVar(&roadsPath, "roads", "", "road centerline layer (GeoJSON)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for the generated layer")
	cmd.Flags().Float64Var(&opts.BufferDistance, "buffer", opts.BufferDistance, "road buffer distance in meters")
	cmd.Flags().Float64Var(&opts.MinArea, "min-area", 0, "minimum block area in square meters (0 = no filter)")
	cmd.Flags().Float64Var(&opts.MaxArea, "max-area", 0, "maximum block area in square meters (0 = unbounded)")
	cmd.Flags().StringVar(&opts.TargetCRS, "crs", "", "target CRS, e.g. EPSG:32736 (must be metric)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the interactive progress display")
	_ = cmd.MarkFlagRequired("roads")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
