package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medreport-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite. It is the default
// backend for single-node deployments.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var predicted, corrected, keywords string

	err := s.Scan(
		&fb.ID, &fb.InputDigest, &predicted, &corrected, &fb.ReviewerAgreed,
		&keywords, &fb.RulesVersion, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.PredictedCategory = domain.BenefitCategory(predicted)
	fb.CorrectedCategory = domain.BenefitCategory(corrected)
	if keywords != "" {
		if err := json.Unmarshal([]byte(keywords), &fb.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("failed to decode matched keywords: %w", err)
		}
	}
	return fb, nil
}

func encodeKeywords(keywords []string) (string, error) {
	if len(keywords) == 0 {
		return "", nil
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("failed to encode matched keywords: %w", err)
	}
	return string(data), nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input_digest TEXT NOT NULL,
		predicted_category TEXT NOT NULL,
		corrected_category TEXT NOT NULL,
		reviewer_agreed INTEGER NOT NULL DEFAULT 0,
		matched_keywords TEXT DEFAULT '',
		rules_version TEXT NOT NULL DEFAULT '',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(input_digest, rules_version)
	);

	CREATE INDEX IF NOT EXISTS idx_input_digest ON feedback(input_digest);
	CREATE INDEX IF NOT EXISTS idx_predicted_category ON feedback(predicted_category);
	CREATE INDEX IF NOT EXISTS idx_created_at ON feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates feedback for a consultation.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	now := time.Now()

	keywords, err := encodeKeywords(feedback.MatchedKeywords)
	if err != nil {
		return err
	}

	var existingID int64
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM feedback WHERE input_digest = ? AND rules_version = ?",
		feedback.InputDigest, feedback.RulesVersion,
	).Scan(&existingID)

	if err == nil {
		feedback.ID = existingID
		feedback.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE feedback SET
				predicted_category = ?,
				corrected_category = ?,
				reviewer_agreed = ?,
				matched_keywords = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(feedback.PredictedCategory),
			string(feedback.CorrectedCategory),
			feedback.ReviewerAgreed,
			keywords,
			feedback.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			input_digest, predicted_category, corrected_category,
			reviewer_agreed, matched_keywords, rules_version, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.InputDigest,
		string(feedback.PredictedCategory),
		string(feedback.CorrectedCategory),
		feedback.ReviewerAgreed,
		keywords,
		feedback.RulesVersion,
		feedback.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id

	return nil
}

// Get retrieves feedback for an input digest under a rules version.
func (s *SQLiteStore) Get(ctx context.Context, inputDigest, rulesVersion string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, input_digest, predicted_category, corrected_category,
			reviewer_agreed, matched_keywords, rules_version, notes,
			created_at, updated_at
		FROM feedback
		WHERE input_digest = ? AND rules_version = ?
		LIMIT 1
	`, inputDigest, rulesVersion)

	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns feedback entries, newest first, with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input_digest, predicted_category, corrected_category,
			reviewer_agreed, matched_keywords, rules_version, notes,
			created_at, updated_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	return count, err
}

// Stats aggregates agreement counts per predicted category.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT predicted_category, COUNT(*), SUM(reviewer_agreed)
		FROM feedback
		GROUP BY predicted_category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	return buildStats(rows)
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all feedback to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// buildStats folds GROUP BY rows into the aggregate view. Shared between the
// SQLite and PostgreSQL backends, whose stats queries return the same shape.
func buildStats(rows *sql.Rows) (*Stats, error) {
	stats := &Stats{PerCategory: make(map[string]CategoryStats)}

	for rows.Next() {
		var category string
		var predicted, agreed int64
		if err := rows.Scan(&category, &predicted, &agreed); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.PerCategory[category] = CategoryStats{Predicted: predicted, Agreed: agreed}
		stats.Total += predicted
		stats.Agreed += agreed
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		stats.Accuracy = float64(stats.Agreed) / float64(stats.Total)
	}
	return stats, nil
}

// exportJSON and importJSON implement the shared JSON exchange format on top
// of the Store interface methods.
func exportJSON(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := store.Get(ctx, fb.InputDigest, fb.RulesVersion)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
