package goldmine

import "context"

// ReferenceRepository reads the stable tables. Each call also returns the
// table's total row count.
type ReferenceRepository interface {
	SearchComtrade(ctx context.Context, hsPrefix, businessType string, limit int) ([]ComtradeRecord, int, error)
	RecentConsultations(ctx context.Context, limit int) ([]Consultation, int, error)
	RecentPatterns(ctx context.Context, limit int) ([]PatternRecord, int, error)
}

type MarketRepository interface {
	UpsertAlert(ctx context.Context, a MarketAlert) error
	UpsertAPICache(ctx context.Context, e APICacheEntry) error
}
