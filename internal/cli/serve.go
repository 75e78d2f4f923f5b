package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sopflow/internal/gateway/app"
	"sopflow/internal/gateway/config"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port    string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if root.settingsPath != "" {
				cfg.SettingsPath = root.settingsPath
			}
			if cmd.Flags().Changed("port") {
				if !strings.Contains(port, ":") {
					port = ":" + port
				}
				cfg.Port = port
			}
			if offline {
				cfg.LLM.Offline = true
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- a.Start() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			log.Println("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.Shutdown(ctx); err != nil {
				return err
			}
			log.Println("Server exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", ":8080", "listen address (overrides $PORT)")
	cmd.Flags().BoolVar(&offline, "offline", false, "answer with the local outline parser instead of a model")
	return cmd
}
