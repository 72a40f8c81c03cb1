package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/api"
	"github.com/jesses-code-adventures/billing/internal/logger"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the billing JSON API under /api/v1 until interrupted. When API_USER and
API_PASSWORD are set, every API route requires basic auth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				return errors.New("serve needs a loaded configuration")
			}
			if port == 0 {
				port = a.cfg.Port
			}
			log := logger.WithComponent("cli")
			log.Info().Int("port", port).Msg("starting api server")
			return api.NewServer(a.svc).
				WithBasicAuth(a.cfg.APIUser, a.cfg.APIPassword).
				ListenAndServe(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides PORT)")
	return cmd
}
