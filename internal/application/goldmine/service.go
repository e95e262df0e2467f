package goldmine

import (
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// Service implements the stable readers and the volatile writer.
// Safe for concurrent use.
type Service struct {
	Sessions  session.Repository
	Events    session.EventRepository
	Reference domain.ReferenceRepository
	Market    domain.MarketRepository
	Cache     application.Cache
	Publisher application.EventPublisher
	Clock     application.Clock
	Logger    *zap.Logger

	ReferenceTTL time.Duration
	WorkflowTTL  time.Duration
}

const (
	defaultHSCode       = "8471"
	comtradeLimit       = 20
	workflowWindow      = 50
	consultationLimit   = 10
	patternLimit        = 10
	defaultReferenceTTL = 24 * time.Hour
	defaultWorkflowTTL  = 5 * time.Minute
)

func (s *Service) cache() application.Cache {
	if s.Cache == nil {
		return application.NopCache{}
	}
	return s.Cache
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) publisher() application.EventPublisher {
	if s.Publisher == nil {
		return application.NopPublisher{}
	}
	return s.Publisher
}

func (s *Service) referenceTTL() time.Duration {
	if s.ReferenceTTL <= 0 {
		return defaultReferenceTTL
	}
	return s.ReferenceTTL
}

func (s *Service) workflowTTL() time.Duration {
	if s.WorkflowTTL <= 0 {
		return defaultWorkflowTTL
	}
	return s.WorkflowTTL
}
