package main

import (
	"fmt"
	"time"

	"github.com/aretw0/weft/internal/cli"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph|definition.json>",
	Short: "Run a graph",
	Long: `Compiles the graph, spawns one instance and ticks it at the configured frame
rate until the frame budget is spent or the process is interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		opts := cli.RunOptions{Path: args[0], Rate: cfg.Runtime.FrameRate}
		opts.Frames, _ = cmd.Flags().GetUint64("frames")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Events, _ = cmd.Flags().GetBool("events")
		opts.MetricsAddr, _ = cmd.Flags().GetString("metrics")
		opts.FixedStep, _ = cmd.Flags().GetDuration("fixed-step")
		if cmd.Flags().Changed("rate") {
			opts.Rate, _ = cmd.Flags().GetInt("rate")
		}
		if tracing, _ := cmd.Flags().GetBool("trace"); tracing {
			cfg.Runtime.Tracing = true
		}

		var metrics *observability.Metrics
		if opts.MetricsAddr != "" {
			reg := prometheus.NewRegistry()
			metrics = observability.NewMetrics(reg)
			opts.Gatherer = reg
		}

		eng, err := cli.NewEngine(cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer eng.Close()

		start := time.Now()
		frames, err := cli.Run(cmd.Context(), eng, opts, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "ran %d frames in %s\n", frames, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("frames", 0, "Stop after this many frames (0 runs until interrupted)")
	runCmd.Flags().Int("rate", 60, "Frame rate in Hz (0 runs frames back to back)")
	runCmd.Flags().Duration("fixed-step", 0, "Delta handed to every frame instead of the measured time")
	runCmd.Flags().BoolP("watch", "w", false, "Recompile and hot-reload the graph when its file changes")
	runCmd.Flags().Bool("events", false, "Read JSON-Lines events from stdin")
	runCmd.Flags().Bool("trace", false, "Record node failures instead of aborting")
	runCmd.Flags().String("metrics", "", "Serve Prometheus metrics on this address")
}
