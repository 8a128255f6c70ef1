package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/server"
	"github.com/aymanh23/searchv2/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve intakes over HTTP and WebSocket",
	Long: `Start the intake server. Clients run intakes over the WebSocket endpoint
at /ws or the HTTP endpoints under /intake, /answer and /sessions. Every
session is recorded in the configured store.

Listen address and allowed origins come from the server block in the config.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate(serveConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		stores, err := store.NewBundle(cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer stores.Close()

		searcher, err := buildSearcher(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Sessions run on a background context so an in-flight exchange
		// survives the shutdown signal long enough to land in the store.
		srv, err := server.New(server.Options{
			Config:   cfg,
			Stores:   stores,
			Factory:  newCommunicatorFactory(context.Background(), cfg, "", nil, searcher),
			Searcher: searcher,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Listening on %s\n", srv.Addr())
		if err := srv.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nServer stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", ".", "Path to config file or directory")
}
