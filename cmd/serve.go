package cmd

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"watchwire/internal/rendezvous"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a rendezvous server",
	Long: `Run the rendezvous server peers use to find each other. The server
pairs a host and a guest by room id and relays their connection
negotiation; video and sync traffic never touches it.

Examples:
  watchwire serve
  watchwire serve --listen :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	hub := rendezvous.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", rendezvous.HealthHandler)
	mux.HandleFunc("/ws", rendezvous.ServeWs(hub))

	slog.Info("rendezvous server listening", "addr", flagListen)
	return http.ListenAndServe(flagListen, mux)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", ":8080", "Address to listen on")
}
