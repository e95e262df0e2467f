package servicerequest

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	// List returns newest first. Empty assignedTo means everyone.
	List(ctx context.Context, assignedTo string) ([]Request, error)
	// Update returns ErrNotFound for an unknown id.
	Update(ctx context.Context, u Update, at time.Time) (*Request, error)
}

// AnalysisRepository reads vulnerability analyses by contact email, newest first.
type AnalysisRepository interface {
	ByEmails(ctx context.Context, emails []string) (map[string][]VulnerabilityAnalysis, error)
}
