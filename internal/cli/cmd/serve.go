package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/cli/styles"
	"github.com/bnema/touchicons/internal/infrastructure/webui"
	"github.com/bnema/touchicons/internal/logging"
)

var (
	serveListen string
	serveFollow bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the internals HTTP surface",
	Long: `Serve the icon cache internals over HTTP until interrupted.

Endpoints:
  GET    /icons?profile=           list cached records
  GET    /icons/image?origin=&size= cached icon as PNG (default size 85)
  DELETE /icons?origin=            delete one origin's icon
  POST   /icons/candidates         submit an icon candidate
  GET    /metrics                  Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from internals.listen)")
	serveCmd.Flags().BoolVarP(&serveFollow, "follow", "f", false, "print icons stored and evicted in the selected profile")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	if !a.Config.Internals.Enabled && serveListen == "" {
		return fmt.Errorf("internals surface is disabled (internals.enabled = false)")
	}
	listen := serveListen
	if listen == "" {
		listen = a.Config.Internals.Listen
	}

	ctx := logging.WithContext(cmd.Context(), *logging.FromContext(a.Ctx()))
	if err := a.WatchConfig(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("config file changes will not be picked up")
	}

	// Open the selected profile up front so load errors surface at startup.
	if _, err := a.Cache(ctx, profileID); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if serveFollow {
		r := styles.NewIconRenderer(a.Theme)
		stop, err := a.Follow(ctx, profileID, port.IconStored|port.IconEvicted, func(ev port.IconEvent) {
			fmt.Fprint(out, r.RenderEvent(ev.Kind.String(), ev.Origin, ev.File))
		})
		if err != nil {
			return err
		}
		defer stop()
	}

	server, err := webui.NewServer(ctx, webui.Options{
		Provider: webui.CacheProviderFunc(func(ctx context.Context, id string) (webui.IconCache, error) {
			storage, err := a.Cache(ctx, id)
			if err != nil {
				return nil, err
			}
			return storage, nil
		}),
		Codec:          a.Codec,
		Metrics:        a.Metrics,
		DefaultProfile: profileID,
		Debug:          verbose,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s\n", a.Theme.Subtle.Render("serving internals on http://"+listen))
	return server.ListenAndServe(ctx, listen)
}
