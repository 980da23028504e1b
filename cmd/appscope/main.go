package main

import (
	"fmt"
	"os"

	"github.com/ooAKLoo/AppScope/internal/client"
	"github.com/ooAKLoo/AppScope/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	readKey    string
	writeKey   string
	jsonOutput bool

	appClient client.Client
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultHTTPURL() string {
	if s := os.Getenv("APPSCOPE_HTTP_URL"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.HTTPURL != "" {
		return r.HTTPURL
	}
	return "http://localhost:3001"
}

func defaultServer() string {
	if s := os.Getenv("APPSCOPE_SERVER"); s != "" {
		return s
	}
	if r, ok := activeRemote(); ok && r.GRPCAddr != "" {
		return r.GRPCAddr
	}
	return "localhost:9091"
}

func defaultReadKey() string {
	if r, ok := activeRemote(); ok && r.ReadKey != "" {
		return envOr("APPSCOPE_READ_KEY", r.ReadKey)
	}
	return envOr("APPSCOPE_READ_KEY", "rk_default_key")
}

func defaultWriteKey() string {
	if r, ok := activeRemote(); ok && r.WriteKey != "" {
		return envOr("APPSCOPE_WRITE_KEY", r.WriteKey)
	}
	return envOr("APPSCOPE_WRITE_KEY", "wk_default_key")
}

// newClient builds the client for the selected transport.
func newClient() (client.Client, error) {
	keys := client.Keys{Write: writeKey, Read: readKey}
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL, keys), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
}

// noClient overrides the root PersistentPreRunE for commands that do not
// talk to a server.
func noClient(cmd *cobra.Command, args []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "appscope <command>",
	Short:         "Usage analytics for small applications",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		appClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appClient != nil {
			appClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&readKey, "read-key", defaultReadKey(), "read key for query commands")
	rootCmd.PersistentFlags().StringVar(&writeKey, "write-key", defaultWriteKey(), "write key for track and feedback send")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "stats", Title: "Statistics:"},
		&cobra.Group{ID: "ingest", Title: "Ingest:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Statistics
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(dauCmd)
	rootCmd.AddCommand(installsCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(feedbackCmd)

	// Ingest
	rootCmd.AddCommand(trackCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
