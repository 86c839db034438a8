package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/collect"
	"github.com/TobiSchelling/tweetcurator/internal/decide"
	"github.com/TobiSchelling/tweetcurator/internal/llm"
	"github.com/TobiSchelling/tweetcurator/internal/pipeline"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline: collect -> filter -> decide",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		collector, err := collect.FromConfig(cfg, logger)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(collector.Sources()))
		for _, src := range collector.Sources() {
			names = append(names, src.Name())
		}
		fmt.Println(dimStyle.Render("Sources: " + strings.Join(names, ", ")))

		opts := pipeline.Options{
			SelfUsername:          cfg.SelfUsername,
			Delay:                 cfg.Pipeline.Delay,
			UseConversationMemory: cfg.Judge.UseConversationMemory,
			GoldExamplesLimit:     cfg.Judge.GoldExamplesLimit,
		}

		var result *pipeline.Result
		if dryRun {
			result, err = pipeline.New(db, collector, nil, opts, logger).DryRun(ctx)
		} else {
			var engine *decide.Engine
			engine, err = newEngine(cmd)
			if err != nil {
				return err
			}
			result, err = pipeline.New(db, collector, engine, opts, logger).Run(ctx)
		}

		printSteps(result)
		if err != nil {
			fmt.Println(errorStyle.Render("Run stopped: " + err.Error()))
			return err
		}

		if !dryRun {
			fmt.Printf("\n%s %s approved, %s rejected, %d skipped as malformed.\n",
				titleStyle.Render("Run complete."),
				approvedStyle.Render(fmt.Sprint(result.Approved)),
				rejectedStyle.Render(fmt.Sprint(result.Rejected)),
				result.Malformed)
			fmt.Println("Run 'tweetcurator review list' or 'tweetcurator serve' to review.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without calling the judge or writing")
}

func newEngine(cmd *cobra.Command) (*decide.Engine, error) {
	mode, err := decide.ParseParseMode(cfg.Judge.ParseMode)
	if err != nil {
		return nil, err
	}
	instructions, err := decide.LoadInstructions(cfg.Judge.InstructionsFile)
	if err != nil {
		return nil, err
	}
	judge, err := llm.NewJudge(cmd.Context(), cfg.Judge)
	if err != nil {
		return nil, err
	}
	logger.Info("judge ready",
		zap.String("provider", cfg.Judge.Provider),
		zap.String("model", cfg.Judge.Model),
		zap.String("parse_mode", string(mode)),
	)
	return decide.NewEngine(judge, instructions, mode, cfg.Judge.UseConversationMemory, logger), nil
}

func printSteps(r *pipeline.Result) {
	if r == nil {
		return
	}
	fmt.Println(dimStyle.Render("run " + r.RunID))
	for i, step := range r.Steps {
		fmt.Printf("\n%s\n", titleStyle.Render(fmt.Sprintf("Step %d: %s", i+1, step.Name)))
		fmt.Printf("  %s\n", step.Summary)
	}
}
