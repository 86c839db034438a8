package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS tweets (
    id TEXT PRIMARY KEY,
    text TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    quote TEXT NOT NULL DEFAULT '',
    approved INTEGER,
    score INTEGER NOT NULL DEFAULT 0,
    createdAt TEXT NOT NULL,
    humanDecision TEXT CHECK(humanDecision IN ('APPROVED', 'REJECTED')),
    humanCorrection TEXT,
    publishedTweetId TEXT,
    likesCount INTEGER NOT NULL DEFAULT 0,
    retweetsCount INTEGER NOT NULL DEFAULT 0,
    repliesCount INTEGER NOT NULL DEFAULT 0,
    quotesCount INTEGER NOT NULL DEFAULT 0,
    viewsCount INTEGER NOT NULL DEFAULT 0,
    lastMetricsUpdate TEXT
);

CREATE TABLE IF NOT EXISTS metrics_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tweetId TEXT NOT NULL REFERENCES tweets(id),
    capturedAt TEXT NOT NULL,
    likesCount INTEGER NOT NULL DEFAULT 0,
    retweetsCount INTEGER NOT NULL DEFAULT 0,
    repliesCount INTEGER NOT NULL DEFAULT 0,
    quotesCount INTEGER NOT NULL DEFAULT 0,
    viewsCount INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updatedAt TEXT
);

CREATE INDEX IF NOT EXISTS idx_tweets_review ON tweets(score DESC, createdAt DESC);
CREATE INDEX IF NOT EXISTS idx_tweets_human ON tweets(humanDecision);
CREATE INDEX IF NOT EXISTS idx_tweets_published ON tweets(publishedTweetId);
CREATE INDEX IF NOT EXISTS idx_snapshots_tweet ON metrics_snapshots(tweetId, capturedAt);
`)
			return err
		},
	},
}

// column is a column every store must have, with the definition used to add
// it to stores created by older builds.
type column struct {
	Table string
	Name  string
	Def   string
}

// expectedColumns lists additive columns. ALTER TABLE ADD COLUMN only accepts
// constant defaults, so NOT NULL columns always carry one.
var expectedColumns = []column{
	{"tweets", "text", "TEXT NOT NULL DEFAULT ''"},
	{"tweets", "url", "TEXT NOT NULL DEFAULT ''"},
	{"tweets", "author", "TEXT NOT NULL DEFAULT ''"},
	{"tweets", "quote", "TEXT NOT NULL DEFAULT ''"},
	{"tweets", "approved", "INTEGER"},
	{"tweets", "score", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "createdAt", "TEXT NOT NULL DEFAULT ''"},
	{"tweets", "humanDecision", "TEXT"},
	{"tweets", "humanCorrection", "TEXT"},
	{"tweets", "publishedTweetId", "TEXT"},
	{"tweets", "likesCount", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "retweetsCount", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "repliesCount", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "quotesCount", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "viewsCount", "INTEGER NOT NULL DEFAULT 0"},
	{"tweets", "lastMetricsUpdate", "TEXT"},
	{"config", "updatedAt", "TEXT"},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
