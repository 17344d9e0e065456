// Package feedback provides reviewer feedback storage for benefit category
// classifications. Physicians reviewing generated reports record whether the
// classified category was right and, when it was not, which category it
// should have been; the accumulated corrections drive keyword table tuning.
//
// Raw consultation text is never stored. Feedback is keyed by a SHA-256
// digest of the input, which is enough to correlate repeated reviews of the
// same consultation without persisting medical content.
package feedback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"github.com/medreport-server/internal/domain"
)

// Feedback represents one reviewer's verdict on a classification.
type Feedback struct {
	ID                int64                  `json:"id,omitempty"`
	InputDigest       string                 `json:"input_digest"`       // SHA-256 of the classified text
	PredictedCategory domain.BenefitCategory `json:"predicted_category"` // System's classification
	CorrectedCategory domain.BenefitCategory `json:"corrected_category"` // Reviewer's decision
	ReviewerAgreed    bool                   `json:"reviewer_agreed"`
	MatchedKeywords   []string               `json:"matched_keywords,omitempty"` // Evidence the classifier matched
	RulesVersion      string                 `json:"rules_version"`
	Notes             string                 `json:"notes,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Digest computes the storage key for a consultation text.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CategoryStats aggregates feedback for one predicted category.
type CategoryStats struct {
	Predicted int64 `json:"predicted"`
	Agreed    int64 `json:"agreed"`
}

// Stats is the aggregate view served to the rules maintainers. Accuracy is
// agreed / total over all reviews.
type Stats struct {
	Total       int64                    `json:"total"`
	Agreed      int64                    `json:"agreed"`
	Accuracy    float64                  `json:"accuracy"`
	PerCategory map[string]CategoryStats `json:"per_category"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for a consultation. Feedback for the
	// same input digest and rules version is updated, not duplicated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for an input digest under a rules version.
	// Returns nil when no feedback exists.
	Get(ctx context.Context, inputDigest, rulesVersion string) (*Feedback, error)

	// List returns feedback entries, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Stats aggregates agreement counts per predicted category.
	Stats(ctx context.Context) (*Stats, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader. Entries whose digest
	// and rules version already exist are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
