package database

// GetGoldExamples returns human-approved decisions, most recent first, for
// few-shot prompting. limit <= 0 returns all of them. Nothing is cached: every
// call reflects the current review state.
func (db *DB) GetGoldExamples(limit int) ([]GoldExample, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT COALESCE(text, ''), quote, COALESCE(humanCorrection, '')
		FROM tweets
		WHERE humanDecision = 'APPROVED' AND quote != ''
		ORDER BY createdAt DESC, rowid DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examples []GoldExample
	for rows.Next() {
		var ex GoldExample
		if err := rows.Scan(&ex.TweetText, &ex.Response, &ex.Correction); err != nil {
			return nil, err
		}
		ex.Type = GoldApproved
		if ex.Correction != "" {
			ex.Type = GoldCorrected
		}
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}
