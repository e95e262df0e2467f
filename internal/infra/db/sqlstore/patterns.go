package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
)

type PatternMatchRepository struct{ base }

func NewPatternMatchRepository(db *sqlx.DB) *PatternMatchRepository {
	return &PatternMatchRepository{newBase(db)}
}

func (r *PatternMatchRepository) Upsert(ctx context.Context, m intelligence.PatternMatch) error {
	q := `INSERT INTO user_pattern_matches
 (session_id, pattern_name, pattern_category, confidence_score, insights_count, business_type, created_at)
 VALUES (?, ?, ?, ?, ?, ?, ?)` + r.dialect.upsert([]string{"session_id", "pattern_name"},
		[]string{"pattern_category", "confidence_score", "insights_count", "business_type"})
	_, err := r.db.ExecContext(ctx, r.q(q),
		m.SessionID, m.PatternName, m.PatternCategory, m.Confidence, m.InsightsCount, m.BusinessType, m.CreatedAt)
	return err
}
