// Package export writes decided tweets to spreadsheets for offline review.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

// SheetName is the worksheet holding one row per tweet.
const SheetName = "Decisions"

var header = []any{
	"id", "url", "author", "text", "quote", "approved", "score", "human_decision",
	"human_correction", "published_tweet_id", "likes", "retweets", "replies", "quotes",
	"views", "created_at",
}

// All pages through the store and returns every tweet matching filter, in review order.
func All(db *database.DB, filter database.ListFilter) ([]database.Tweet, error) {
	var all []database.Tweet
	for page := 1; ; page++ {
		p, err := db.List(filter, database.Pagination{Page: page, PageSize: database.MaxPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || len(all) >= p.Total {
			return all, nil
		}
	}
}

// Write encodes tweets as an xlsx workbook with a single Decisions sheet.
func Write(w io.Writer, tweets []database.Tweet) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := xl.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range tweets {
		published := ""
		if t.PublishedTweetID != nil {
			published = *t.PublishedTweetID
		}
		record := []any{
			t.ID,
			t.URL,
			t.Author,
			t.Text,
			t.Quote,
			t.Approved.String(),
			t.Score,
			string(t.HumanDecision),
			t.HumanCorrection,
			published,
			t.Counters.Likes,
			t.Counters.Retweets,
			t.Counters.Replies,
			t.Counters.Quotes,
			t.Counters.Views,
			t.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := xl.SetSheetRow(SheetName, cell, &record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteXLSX writes tweets to an xlsx file at path, creating parent directories.
func WriteXLSX(path string, tweets []database.Tweet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, tweets); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
