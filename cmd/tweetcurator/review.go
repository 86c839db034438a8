package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/tweetcurator/internal/database"
	"github.com/TobiSchelling/tweetcurator/internal/logging"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List and review model decisions",
}

var (
	listApproved string
	listHuman    string
	listPage     int
	listPageSize int
)

// listFilter turns the shared --approved/--human flags into a ListFilter.
func listFilter() (database.ListFilter, error) {
	var f database.ListFilter
	if listApproved != "" {
		b, err := strconv.ParseBool(listApproved)
		if err != nil {
			return f, fmt.Errorf("invalid --approved value %q", listApproved)
		}
		f.Approved = &b
	}
	h, err := database.ParseHumanFilter(listHuman)
	if err != nil {
		return f, err
	}
	f.Human = h
	return f, nil
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tweets in review order (score, then newest)",
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

		page, err := db.List(f, database.Pagination{Page: listPage, PageSize: listPageSize})
		if err != nil {
			return err
		}

		if len(page.Items) == 0 {
			fmt.Println("No tweets match.")
			return nil
		}

		for _, t := range page.Items {
			verdict := t.Approved.String()
			line := fmt.Sprintf("[%s] %s %3d", t.ID, verdictStyle(verdict).Render(fmt.Sprintf("%-8s", verdict)), t.Score)
			if t.HumanDecision != database.HumanUnset {
				line += " " + verdictStyle(string(t.HumanDecision)).Render(string(t.HumanDecision))
			}
			fmt.Println(line)
			fmt.Printf("    %s\n", logging.Truncate(t.Text, 100))
			if t.Quote != "" {
				fmt.Println(dimStyle.Render("    > " + logging.Truncate(t.Quote, 100)))
			}
		}

		last := (page.Total + page.PageSize - 1) / page.PageSize
		fmt.Printf("\nPage %d of %d (%d tweets)\n", page.Page, max(last, 1), page.Total)
		return nil
	},
}

var (
	decideDecision    string
	decidePublishedID string
	decideCorrection  string
)

var reviewDecideCmd = &cobra.Command{
	Use:   "decide [id]",
	Short: "Record a human decision, correction or published tweet id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var u database.HumanUpdate
		if cmd.Flags().Changed("decision") {
			d, err := database.ParseHumanDecision(decideDecision)
			if err != nil {
				return err
			}
			u.Decision = &d
		}
		if cmd.Flags().Changed("published-id") {
			u.PublishedTweetID = &decidePublishedID
		}
		if cmd.Flags().Changed("correction") {
			u.Correction = &decideCorrection
		}
		if u.IsEmpty() {
			return errors.New("nothing to update: pass --decision, --published-id or --correction")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id := args[0]
		if err := db.UpdateHumanDecision(id, u); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("tweet %s not found", id)
			}
			return err
		}

		t, err := db.Get(id)
		if err != nil {
			return err
		}
		human := "unset"
		if t.HumanDecision != database.HumanUnset {
			human = string(t.HumanDecision)
		}
		fmt.Printf("Tweet [%s]: human %s\n", id, verdictStyle(human).Render(human))
		if t.PublishedTweetID != nil {
			fmt.Printf("  Published as %s\n", *t.PublishedTweetID)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewListCmd, exportCmd} {
		c.Flags().StringVar(&listApproved, "approved", "", "Filter by model verdict (true|false)")
		c.Flags().StringVar(&listHuman, "human", "", "Filter by human decision (APPROVED|REJECTED|UNSET)")
	}
	reviewListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	reviewListCmd.Flags().IntVar(&listPageSize, "page-size", database.DefaultPageSize, "Page size (max 100)")

	reviewDecideCmd.Flags().StringVar(&decideDecision, "decision", "", "APPROVED, REJECTED or UNSET")
	reviewDecideCmd.Flags().StringVar(&decidePublishedID, "published-id", "", "Id of the posted quote tweet (empty clears)")
	reviewDecideCmd.Flags().StringVar(&decideCorrection, "correction", "", "Corrected quote text (empty clears)")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewDecideCmd)
}
