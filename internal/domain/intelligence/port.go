package intelligence

import "context"

type PatternMatchRepository interface {
	Upsert(ctx context.Context, m PatternMatch) error
}
