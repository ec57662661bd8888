package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/cli"
	httpAdapter "github.com/aretw0/weft/pkg/adapters/http"
	"github.com/aretw0/weft/pkg/adapters/file"
	"github.com/aretw0/weft/pkg/observability"
	"github.com/aretw0/weft/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the compiled graphs of the configured store over HTTP while ticking the
spawned instances. Graphs PUT to the server, or changed in --dir, are
recompiled and hot-reloaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		dir, _ := cmd.Flags().GetString("dir")
		spawn, _ := cmd.Flags().GetStringSlice("spawn")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		eng, err := cli.NewEngine(cfg, logger, observability.NewMetrics(reg))
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		for _, key := range spawn {
			def, err := eng.Load(ctx, key)
			if err != nil {
				return fmt.Errorf("cannot spawn %s: %w", key, err)
			}
			eng.Spawn(def)
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithCompiler(cli.Reloader{Engine: eng, Logger: logger}),
			httpAdapter.WithEventSink(eng),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithVersion(weft.Version),
			httpAdapter.WithLogger(logger),
		}
		if dir != "" {
			src := file.NewSource(dir, file.WithLogger(logger))
			if err := cli.EnsureAll(ctx, eng, src); err != nil {
				return err
			}
			if err := cli.WatchAndReload(ctx, eng, src, logger); err != nil {
				return err
			}
			opts = append(opts, httpAdapter.WithWatcher(src))
		}

		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: httpAdapter.NewHandler(eng.Store(), opts...),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("weft server listening", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		frames := make(chan error, 1)
		go func() {
			_, err := eng.Run(ctx, runner.WithRate(cfg.Runtime.FrameRate))
			frames <- err
		}()

		select {
		case err := <-serverErrors:
			stop()
			<-frames
			return fmt.Errorf("server error: %w", err)
		case err := <-frames:
			if err != nil {
				srv.Close()
				return err
			}
		}

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("graceful shutdown did not complete", "err", err)
			srv.Close()
		}
		logger.Info("weft server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
	serveCmd.Flags().String("dir", "", "Directory of authoring graphs to compile and watch")
	serveCmd.Flags().StringSlice("spawn", nil, "Stored graph keys to spawn at startup")
}
