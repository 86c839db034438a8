package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// reviewOrder ranks by score, then recency. rowid keeps pages stable when
// both tie.
var reviewOrder = []string{"score DESC", "createdAt DESC", "rowid DESC"}

// List returns one page of tweets matching the filter, along with the number
// of rows matching the same predicate. Both reads run in one transaction.
func (db *DB) List(filter ListFilter, p Pagination) (*Page, error) {
	p = p.Normalize()
	pred := filterPredicate(filter)

	countSQL, countArgs, err := sq.Select("COUNT(*)").From("tweets").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}
	pageSQL, pageArgs, err := sq.Select(tweetColumns...).
		From("tweets").
		Where(pred).
		OrderBy(reviewOrder...).
		Limit(uint64(p.PageSize)).
		Offset(uint64((p.Page - 1) * p.PageSize)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building page query: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	page := &Page{Page: p.Page, PageSize: p.PageSize, Items: []Tweet{}}
	if err := tx.QueryRow(countSQL, countArgs...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting tweets: %w", err)
	}

	rows, err := tx.Query(pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("listing tweets: %w", err)
	}
	defer rows.Close()

	items, err := scanTweets(rows)
	if err != nil {
		return nil, err
	}
	if items != nil {
		page.Items = items
	}
	return page, nil
}

func filterPredicate(f ListFilter) sq.And {
	pred := sq.And{}
	if f.Approved != nil {
		pred = append(pred, sq.Eq{"approved": boolToInt(*f.Approved)})
	}
	switch f.Human {
	case HumanFilterUnset:
		pred = append(pred, sq.Eq{"humanDecision": nil})
	case HumanFilterApproved, HumanFilterRejected:
		pred = append(pred, sq.Eq{"humanDecision": string(f.Human)})
	}
	return pred
}

// UpdateHumanDecision applies a partial review update. An empty update is a
// no-op; an update for an unknown id returns ErrNotFound. Model decision
// fields are never written here.
func (db *DB) UpdateHumanDecision(id string, u HumanUpdate) error {
	if u.IsEmpty() {
		return nil
	}

	set := map[string]any{}
	if u.Decision != nil {
		set["humanDecision"] = nullIfEmpty(string(*u.Decision))
	}
	if u.PublishedTweetID != nil {
		set["publishedTweetId"] = nullIfEmpty(*u.PublishedTweetID)
	}
	if u.Correction != nil {
		set["humanCorrection"] = nullIfEmpty(*u.Correction)
	}

	query, args, err := sq.Update("tweets").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}

	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating human decision for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
