package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
	"github.com/CESMikef/cadastral-automation/pkg/progress"
	"github.com/CESMikef/cadastral-automation/pkg/writer"
)

// finalizationSteps counts the steps the CLI performs after the pipeline
// proper: saving the output file and finalizing.
const finalizationSteps = 2

// generateParams holds the resolved inputs for a generation run.
type generateParams struct {
	roadsPath  string
	pointsPath string
	output     string
	opts       pipeline.Options
	noTUI      bool
}

// generateCommand creates the generate command for parcel generation.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		roadsPath  string
		pointsPath string
		output     string
		noTUI      bool
	)
	opts := pipeline.Options{
		BufferDistance:  10,
		MinArea:         250,
		MaxArea:         2000,
		ExtentBufferPct: pipeline.DefaultExtentBufferPct,
		Mode:            pipeline.ModeParcels,
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate parcel boundaries from roads and building points",
		Long: `Generate land-parcel boundaries.

Road centerlines are buffered into a dissolved road reserve, building points
are tessellated into candidate parcels, the road reserve is subtracted, and
each parcel is clamped to its road block and filtered by area. Inputs are
GeoJSON files; the output is a GeoJSON polygon layer in the target CRS with
an area_sqm property per parcel.

The target CRS must use meter units (a UTM zone or another projected system);
inputs in geographic coordinates are reprojected automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.applyConfig(cmd, &opts); err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), generateParams{
				roadsPath:  roadsPath,
				pointsPath: pointsPath,
				output:     output,
				opts:       opts,
				noTUI:      noTUI,
			})
		},
	}

	cmd.Flags().StringVar(&roadsPath, "roads", "", "road centerline layer (GeoJSON)")
	cmd.Flags().StringVar(&pointsPath, "points", "", "building point layer (GeoJSON)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for the generated layer")
	cmd.Flags().Float64Var(&opts.BufferDistance, "buffer", opts.BufferDistance, "road buffer distance in meters")
	cmd.Flags().Float64Var(&opts.MinArea, "min-area", opts.MinArea, "minimum parcel area in square meters")
	cmd.Flags().Float64Var(&opts.MaxArea, "max-area", opts.MaxArea, "maximum parcel area in square meters (0 = unbounded)")
	cmd.Flags().StringVar(&opts.TargetCRS, "crs", "", "target CRS, e.g. EPSG:32736 (must be metric)")
	cmd.Flags().Float64Var(&opts.ExtentBufferPct, "extent-buffer", opts.ExtentBufferPct, "tessellation extent buffer percentage (10-30)")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable the interactive progress display")
	_ = cmd.MarkFlagRequired("roads")
	_ = cmd.MarkFlagRequired("points")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// applyConfig fills options the user left unset from the config file.
// Explicit flags always win over config values.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("buffer") && cfg.BufferDistance > 0 {
		opts.BufferDistance = cfg.BufferDistance
	}
	if !flags.Changed("min-area") && cfg.MinArea > 0 {
		opts.MinArea = cfg.MinArea
	}
	if !flags.Changed("max-area") && cfg.MaxArea > 0 {
		opts.MaxArea = cfg.MaxArea
	}
	if !flags.Changed("crs") && cfg.TargetCRS != "" {
		opts.TargetCRS = cfg.TargetCRS
	}
	if f := flags.Lookup("extent-buffer"); f != nil && !f.Changed && cfg.ExtentBufferPct > 0 {
		opts.ExtentBufferPct = cfg.ExtentBufferPct
	}
	return nil
}

// runGenerate loads the inputs, runs the pipeline, and saves the output.
func (c *CLI) runGenerate(ctx context.Context, p generateParams) error {
	if err := errors.ValidateOutputPath(p.output); err != nil {
		return err
	}

	reg := layer.NewRegistry()
	roads, err := layer.ImportGeoJSON(p.roadsPath, "roads", "EPSG:4326")
	if err != nil {
		return fmt.Errorf("load roads %s: %w", p.roadsPath, err)
	}
	reg.Register(roads)
	p.opts.RoadLayer = "roads"

	title := "Generating blocks"
	kind := "blocks"
	if p.opts.Mode == pipeline.ModeParcels {
		points, err := layer.ImportGeoJSON(p.pointsPath, "buildings", "EPSG:4326")
		if err != nil {
			return fmt.Errorf("load points %s: %w", p.pointsPath, err)
		}
		reg.Register(points)
		p.opts.PointLayer = "buildings"
		title = "Generating parcels"
		kind = "parcels"
	}

	p.opts.Logger = c.Logger
	total := p.opts.TotalSteps() + finalizationSteps

	track := newElapsed(c.Logger)
	var result *pipeline.Result
	if p.noTUI || !isatty.IsTerminal(os.Stderr.Fd()) {
		result, err = c.runPlain(ctx, reg, p.opts, total)
	} else {
		result, err = runWithTUI(ctx, title, finalizationSteps, reg, p.opts)
	}
	if err != nil {
		if errors.IsCancelled(err) {
			printWarning("Cancelled")
		}
		return err
	}

	for _, w := range result.Warnings {
		printWarning("%s", w)
	}

	c.Logger.Info("Saving layer", "step", total-1, "total", total, "path", p.output)
	saveErr := writer.Save(result.Layer, p.output)

	c.Logger.Info("Finalizing", "step", total, "total", total)
	track.done(fmt.Sprintf("Generated %d %s", result.Layer.Count(), kind))

	if saveErr != nil {
		printError("Save failed: %s", errors.UserMessage(saveErr))
		printStats(result.Layer.Count(), kind, result.Stats.BlockCount, result.Stats.Duration)
		return saveErr
	}

	printSuccess("%d %s generated", result.Layer.Count(), kind)
	printFile(p.output)
	printStats(result.Layer.Count(), kind, result.Stats.BlockCount, result.Stats.Duration)
	if p.opts.Mode == pipeline.ModeParcels {
		printNewline()
		printNextStep("Extract the block outlines", blocksHint(p.roadsPath, p.opts))
	}
	return nil
}

// blocksHint renders the blocks command matching a generate run, for the
// next-step suggestion after parcel generation.
func blocksHint(roadsPath string, opts pipeline.Options) string {
	return fmt.Sprintf("cadastral blocks --roads %s --crs %s --buffer %g -o blocks.geojson",
		roadsPath, opts.TargetCRS, opts.BufferDistance)
}

// runPlain executes the pipeline behind a single-line spinner, for
// non-interactive terminals and --no-tui.
func (c *CLI) runPlain(ctx context.Context, reg *layer.Registry, opts pipeline.Options, total int) (*pipeline.Result, error) {
	sp := newSpinnerWithContext(ctx, "Starting pipeline")
	sp.Start()
	defer sp.Stop()

	opts.Observer = spinnerObserver{sp: sp, total: total}
	return pipeline.Run(ctx, reg, opts)
}

// spinnerObserver shows the current stage on a spinner line. Warnings are
// surfaced after the run from the result; cancellation arrives through the
// spinner's context.
type spinnerObserver struct {
	sp    *Spinner
	total int
}

func (o spinnerObserver) OnStage(_ context.Context, e progress.Event) {
	o.sp.SetMessage(fmt.Sprintf("[%d/%d] %s", e.Step, o.total, e.Message))
}

func (o spinnerObserver) OnWarning(context.Context, string) {}

func (o spinnerObserver) Cancelled() bool { return o.sp.Cancelled() }
