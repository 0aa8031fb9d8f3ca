// Package sqlite persists daily close history and stock ratings. Closes back
// the beta estimator when the upstream API is down; ratings are served to the
// gateway.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"portfolio-riskv1/internal/model"
)

// Store is a single-writer SQLite store.
type Store struct {
	db *sql.DB
}

var (
	_ model.HistoryStore = (*Store)(nil)
	_ model.RatingStore  = (*Store)(nil)
)

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the schema applied.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_closes (
			ticker TEXT    NOT NULL,
			day    INTEGER NOT NULL,
			close  REAL    NOT NULL,
			PRIMARY KEY (ticker, day)
		);

		CREATE TABLE IF NOT EXISTS ratings (
			ticker      TEXT PRIMARY KEY,
			score       REAL NOT NULL,
			trend       REAL NOT NULL,
			momentum    REAL NOT NULL,
			rsi         REAL NOT NULL,
			computed_at INTEGER NOT NULL
		);
	`)
	return err
}

// SaveCloses upserts a close series ending on asOf, oldest first, one row per
// calendar day. The whole series goes in a single transaction.
func (s *Store) SaveCloses(ticker string, asOf time.Time, closes []float64) error {
	if len(closes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_closes (ticker, day, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	day := asOf.UTC().Truncate(24 * time.Hour)
	start := time.Now()
	for i, c := range closes {
		d := day.AddDate(0, 0, -(len(closes) - 1 - i))
		if _, err := stmt.Exec(ticker, d.Unix(), c); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d closes for %s in %v", len(closes), ticker, time.Since(start))
	return nil
}

// ReadCloses returns up to `days` most recent stored closes, oldest first.
func (s *Store) ReadCloses(ticker string, days int) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT close FROM daily_closes
		WHERE ticker = ?
		ORDER BY day DESC
		LIMIT ?
	`, ticker, days)
	if err != nil {
		return nil, fmt.Errorf("sqlite query closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returned newest first; callers want oldest first.
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}

// SaveRating upserts the latest rating for a ticker.
func (s *Store) SaveRating(r model.Rating) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO ratings (ticker, score, trend, momentum, rsi, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Ticker, r.Score, r.Trend, r.Momentum, r.RSI, r.ComputedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert rating: %w", err)
	}
	return nil
}

// LatestRatings returns the stored rating per ticker, highest score first.
func (s *Store) LatestRatings() ([]model.Rating, error) {
	rows, err := s.db.Query(`
		SELECT ticker, score, trend, momentum, rsi, computed_at
		FROM ratings
		ORDER BY score DESC, ticker ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		var r model.Rating
		var at int64
		if err := rows.Scan(&r.Ticker, &r.Score, &r.Trend, &r.Momentum, &r.RSI, &at); err != nil {
			return nil, fmt.Errorf("sqlite scan rating: %w", err)
		}
		r.ComputedAt = time.Unix(at, 0).UTC()
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
