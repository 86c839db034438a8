package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN approved IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN humanDecision = 'APPROVED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN humanDecision = 'REJECTED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN publishedTweetId IS NOT NULL AND publishedTweetId != '' THEN 1 ELSE 0 END), 0)
		FROM tweets`).Scan(
		&s.TotalTweets, &s.Decided, &s.Approved, &s.Rejected,
		&s.HumanApproved, &s.HumanRejected, &s.Published,
	)
	if err != nil {
		return nil, err
	}
	s.Pending = s.TotalTweets - s.Decided

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM metrics_snapshots").Scan(&s.Snapshots); err != nil {
		return nil, err
	}
	return &s, nil
}
