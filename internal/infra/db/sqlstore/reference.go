package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
)

// ReferenceRepository reads the stable reference tables.
type ReferenceRepository struct{ base }

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{newBase(db)}
}

func (r *ReferenceRepository) SearchComtrade(ctx context.Context, hsPrefix, businessType string, limit int) ([]goldmine.ComtradeRecord, int, error) {
	var rows []goldmine.ComtradeRecord
	q := `SELECT hs_code, product_description, base_tariff_rate FROM comtrade_reference
 WHERE product_description ` + r.dialect.ilike() + ` ? OR hs_code LIKE ?
 ORDER BY base_tariff_rate DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, r.q(q), "%"+likeEscape(businessType)+"%", likeEscape(hsPrefix)+"%", limit); err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, "comtrade_reference")
	return rows, total, err
}

func (r *ReferenceRepository) RecentConsultations(ctx context.Context, limit int) ([]goldmine.Consultation, int, error) {
	var rows []goldmine.Consultation
	q := `SELECT id, COALESCE(business_type, '') AS business_type, COALESCE(marcus_response, '') AS marcus_response, created_at
 FROM marcus_consultations ORDER BY created_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, r.q(q), limit); err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, "marcus_consultations")
	return rows, total, err
}

func (r *ReferenceRepository) RecentPatterns(ctx context.Context, limit int) ([]goldmine.PatternRecord, int, error) {
	var rows []goldmine.PatternRecord
	q := `SELECT COALESCE(pattern_type, '') AS pattern_type, COALESCE(outcome, '') AS outcome,
 COALESCE(business_context, '') AS business_context, COALESCE(description, '') AS description,
 success_rate, created_at
 FROM hindsight_pattern_library ORDER BY created_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &rows, r.q(q), limit); err != nil {
		return nil, 0, err
	}
	total, err := r.count(ctx, "hindsight_pattern_library")
	return rows, total, err
}

func (r *ReferenceRepository) count(ctx context.Context, table string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table)
	return n, err
}

// MarketRepository writes the short-lived market tables.
type MarketRepository struct{ base }

func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{newBase(db)}
}

func (r *MarketRepository) UpsertAlert(ctx context.Context, a goldmine.MarketAlert) error {
	q := `INSERT INTO current_market_alerts (country, business_type, current_rate, updated_at, expires_at)
 VALUES (?, ?, ?, ?, ?)` + r.dialect.upsert([]string{"country", "business_type"}, []string{"current_rate", "updated_at", "expires_at"})
	_, err := r.db.ExecContext(ctx, r.q(q), a.Country, a.BusinessType, a.CurrentRate, a.UpdatedAt, a.ExpiresAt)
	return err
}

func (r *MarketRepository) UpsertAPICache(ctx context.Context, e goldmine.APICacheEntry) error {
	q := `INSERT INTO api_cache (cache_key, endpoint, response, created_at, expires_at)
 VALUES (?, ?, ?, ?, ?)` + r.dialect.upsert([]string{"cache_key"}, []string{"response", "created_at", "expires_at"})
	_, err := r.db.ExecContext(ctx, r.q(q), e.CacheKey, e.Endpoint, jsonArg(e.Response), e.CreatedAt, e.ExpiresAt)
	return err
}
