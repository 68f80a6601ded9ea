package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/CESMikef/cadastral-automation/internal/server"
)

// serveCommand creates the serve command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		redisAddr string
		retention time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation pipeline as an HTTP job API",
		Long: `Serve the generation pipeline over HTTP.

Clients POST pipeline configurations with inline GeoJSON layers to
/api/v1/jobs, poll the returned job for stage-level progress, and fetch the
generated layer from /api/v1/jobs/{id}/result. DELETE cancels a running job.

Job state lives in memory by default; pass --redis to share jobs between
multiple instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.Serve.Addr != "" {
				addr = cfg.Serve.Addr
			}
			if !cmd.Flags().Changed("redis") && cfg.Serve.RedisAddr != "" {
				redisAddr = cfg.Serve.RedisAddr
			}

			ctx := cmd.Context()
			var store server.Store
			if redisAddr != "" {
				rs, err := server.NewRedisStore(ctx, redisAddr, retention)
				if err != nil {
					return err
				}
				defer rs.Close()
				store = rs
				c.Logger.Info("using redis job store", "addr", redisAddr)
			} else {
				store = server.NewMemoryStore(retention)
			}

			printInfo("Listening on %s", addr)
			return server.New(c.Logger, store).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for the shared job store (empty = in-memory)")
	cmd.Flags().DurationVar(&retention, "retention", server.DefaultRetention, "how long finished jobs stay queryable")

	return cmd
}
