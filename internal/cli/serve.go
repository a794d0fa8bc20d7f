package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/inkgrid/internal/api"
	"github.com/matzehuels/inkgrid/pkg/pipeline"
)

const defaultAddr = "localhost:8080"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		cache cacheFlags
	)
	flags := newOptionFlags()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rasterization over HTTP",
		Long: `Serve rasterization over HTTP.

Endpoints:
  GET  /healthz        build version
  POST /v1/rasterize   one JSON record in, one vector out
  POST /v1/convert     ndjson records in, vectors per size out

Conversion flags set the server defaults; clients override mode, size,
width, threshold, augment and seed with query parameters. Pass --redis to
share the vector cache between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), addr, cache, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cache.register(cmd)
	flags.register(cmd, true)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, cache cacheFlags, opts pipeline.Options) error {
	runner, err := c.newRunner(ctx, cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv, err := api.New(runner, opts, c.Logger)
	if err != nil {
		return err
	}

	printInfo("Serving on %s", StyleValue.Render("http://"+strings.TrimPrefix(addr, "http://")))
	printKeyValue("mode", opts.Mode)
	printKeyValue("sizes", describeOptions(opts))
	printKeyValue("cache", fmt.Sprintf("%T", runner.Cache))
	return srv.ListenAndServe(ctx, addr)
}
