package grading

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/cache"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/monitoring"
	"github.com/sells-group/alpha-grader/internal/provider"
	"github.com/sells-group/alpha-grader/internal/store"
)

// Deps are the collaborators of a Service. Cache, Auditor, Alerter and
// Metrics are optional.
type Deps struct {
	Engine   *Engine
	Provider provider.Source
	Store    store.GradeStore
	Cache    cache.Cache
	Auditor  *monitoring.Auditor
	Alerter  *monitoring.Alerter
	Metrics  *monitoring.Metrics
}

// ServiceConfig holds the service defaults.
type ServiceConfig struct {
	DefaultLimit   int
	MaxConcurrency int
	DefaultMode    model.Mode
	// StaleAfter marks served rows stale once they are older than this.
	// Zero disables the age check.
	StaleAfter time.Duration
}

// Service exposes batch compute and cached reads.
type Service struct {
	engine   *Engine
	provider provider.Source
	store    store.GradeStore
	cache    cache.Cache
	auditor  *monitoring.Auditor
	alerter  *monitoring.Alerter
	metrics  *monitoring.Metrics
	cfg      ServiceConfig

	now   func() time.Time
	newID func() string
}

// NewService wires a Service. Missing optional collaborators get no-op or
// default implementations.
func NewService(d Deps, cfg ServiceConfig) *Service {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Auditor == nil {
		d.Auditor = monitoring.NewAuditor(monitoring.DefaultAuditConfig())
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 200
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = model.ModeRedraft
	}
	return &Service{
		engine:   d.Engine,
		provider: d.Provider,
		store:    d.Store,
		cache:    d.Cache,
		auditor:  d.Auditor,
		alerter:  d.Alerter,
		metrics:  d.Metrics,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Engine returns the service's grading engine.
func (s *Service) Engine() *Engine { return s.engine }

func (s *Service) log() *zap.Logger {
	return zap.L().With(zap.String("component", "grading"))
}
