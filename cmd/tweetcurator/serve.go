package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/tweetcurator/internal/engagement"
	"github.com/TobiSchelling/tweetcurator/internal/export"
	"github.com/TobiSchelling/tweetcurator/internal/server"
	"github.com/TobiSchelling/tweetcurator/internal/xapi"
)

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local review server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), db, port, logger)
	},
}

// --- metrics command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Track engagement of published quote tweets",
}

var metricsLimit int

var metricsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch current counters for published tweets and append snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newXClient(cmd.Context())
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		limit := cfg.Metrics.Limit
		if cmd.Flags().Changed("limit") {
			limit = metricsLimit
		}

		refresher := engagement.NewRefresher(db, client, limit, cfg.Metrics.StaleAfter, logger)
		result, err := refresher.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Metrics refresh complete"))
		fmt.Printf("  Targets: %d\n", result.Targets)
		fmt.Printf("  Refreshed: %d\n", result.Refreshed)
		if result.Failed > 0 {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  Failed: %d", result.Failed)))
		}
		return nil
	},
}

// newXClient authenticates with the bearer token when its env var is set and
// otherwise with the OAuth2 token file.
func newXClient(ctx context.Context) (*xapi.Client, error) {
	m := cfg.Metrics
	client, err := xapi.NewFromCredentials(ctx, m.BaseURL, xapi.Credentials{
		BearerToken: os.Getenv(m.BearerTokenEnv),
		TokenPath:   cfg.XTokenPath(),
		OAuth: xapi.OAuthConfig{
			ClientID:     os.Getenv(m.ClientIDEnv),
			ClientSecret: os.Getenv(m.ClientSecretEnv),
		},
	})
	if errors.Is(err, xapi.ErrNoCredentials) {
		return nil, fmt.Errorf("X API not configured: set %s or provide a token file at %s (%w)",
			m.BearerTokenEnv, cfg.XTokenPath(), err)
	}
	return client, err
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export [file.xlsx]",
	Short: "Export tweets and decisions to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := listFilter()
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tweets, err := export.All(db, f)
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(args[0], tweets); err != nil {
			return err
		}
		fmt.Printf("Exported %d tweets to %s\n", len(tweets), args[0])
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (overrides config)")
	metricsRefreshCmd.Flags().IntVar(&metricsLimit, "limit", 50, "Maximum tweets to refresh (overrides config)")
	metricsCmd.AddCommand(metricsRefreshCmd)
}
