package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/config"
	"github.com/TobiSchelling/tweetcurator/internal/database"
	"github.com/TobiSchelling/tweetcurator/internal/logging"
	"github.com/TobiSchelling/tweetcurator/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tweetcurator",
	Short:   "Judge, review and track quote-tweet candidates",
	Long:    "tweetcurator collects tweets, asks a language model whether each is worth quote-tweeting, and keeps the verdicts, human reviews and engagement history in a local SQLite store.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("config loaded", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tweetcurator", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/tweetcurator/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, API keys, and the judge provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		token, _, err := db.GetConfig(pipeline.TokenKey)
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Store"))
		fmt.Printf("  Path: %s\n\n", db.Path())
		fmt.Println(titleStyle.Render("Tweets"))
		fmt.Printf("  Total: %d\n", stats.TotalTweets)
		fmt.Printf("  Decided: %d (%s approved, %s rejected)\n", stats.Decided,
			approvedStyle.Render(fmt.Sprint(stats.Approved)), rejectedStyle.Render(fmt.Sprint(stats.Rejected)))
		fmt.Printf("  Pending: %d\n", stats.Pending)
		fmt.Println()
		fmt.Println(titleStyle.Render("Review"))
		fmt.Printf("  Human approved: %d\n", stats.HumanApproved)
		fmt.Printf("  Human rejected: %d\n", stats.HumanRejected)
		fmt.Printf("  Published: %d\n", stats.Published)
		fmt.Printf("  Metrics snapshots: %d\n", stats.Snapshots)
		fmt.Println()
		fmt.Println(titleStyle.Render("Judge"))
		fmt.Printf("  Provider: %s (%s)\n", cfg.Judge.Provider, cfg.Judge.Model)
		if token != "" {
			fmt.Printf("  Conversation head: %s\n", token)
		} else {
			fmt.Println(dimStyle.Render("  No conversation yet"))
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath(), database.WithLogger(logger))
}
