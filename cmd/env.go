package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/cache"
	"github.com/sells-group/alpha-grader/internal/config"
	"github.com/sells-group/alpha-grader/internal/db"
	"github.com/sells-group/alpha-grader/internal/grading"
	"github.com/sells-group/alpha-grader/internal/model"
	"github.com/sells-group/alpha-grader/internal/monitoring"
	"github.com/sells-group/alpha-grader/internal/provider"
	"github.com/sells-group/alpha-grader/internal/resilience"
	"github.com/sells-group/alpha-grader/internal/store"
)

// gradingEnv holds everything the compute, read and serve commands share.
type gradingEnv struct {
	Store   store.GradeStore
	Cache   cache.Cache
	Source  provider.Source // nil for read-only commands
	Guard   *resilience.Guard
	Metrics *monitoring.Metrics
	Auditor *monitoring.Auditor
	Alerter *monitoring.Alerter
	Engine  *grading.Engine
	Service *grading.Service
	closers []func()
}

// Close releases resources held by the environment.
func (e *gradingEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the grade store selected by store.driver.
func initStore(ctx context.Context, c *config.Config) (store.GradeStore, error) {
	switch c.Store.Driver {
	case "sqlite":
		return store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, db.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// initCache builds the read cache selected by cache.backend.
func initCache(ctx context.Context, c *config.Config) (cache.Cache, error) {
	switch c.Cache.Backend {
	case "memory":
		return cache.NewMemory(c.Cache.MaxEntries, c.Cache.TTL()), nil
	case "redis":
		return cache.DialRedis(ctx, c.Cache.RedisAddr, c.Cache.RedisPrefix, c.Cache.TTL())
	case "none", "":
		return cache.Noop{}, nil
	default:
		return nil, eris.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
}

// initSource builds the context provider. The postgres source reads the
// snapshot tables through the grade store's pool.
func initSource(c *config.Config, st store.GradeStore) (provider.Source, error) {
	switch c.Provider.Source {
	case "fixture":
		return provider.LoadFile(c.Provider.FixturePath)
	case "postgres":
		ps, ok := st.(*store.PostgresStore)
		if !ok {
			return nil, eris.New("provider.source postgres requires store.driver postgres")
		}
		return provider.NewPostgres(ps.Pool()), nil
	default:
		return nil, eris.Errorf("unsupported provider source: %s", c.Provider.Source)
	}
}

// initEngine loads the grading profile. grading.version overrides the
// profile version when set.
func initEngine(c *config.Config) (*grading.Engine, error) {
	profile := grading.DefaultProfile()
	if c.Grading.ProfilePath != "" {
		p, err := grading.LoadProfile(c.Grading.ProfilePath)
		if err != nil {
			return nil, err
		}
		profile = p
	}
	if c.Grading.Version != "" {
		profile.Version = c.Grading.Version
	}
	return grading.NewEngine(profile)
}

// initEnv validates the config for mode and wires the service. withSource
// is false for commands that only read the cache.
func initEnv(ctx context.Context, c *config.Config, mode string, withSource bool) (*gradingEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	engine, err := initEngine(c)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	env := &gradingEnv{Store: st, Engine: engine}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rc, err := initCache(ctx, c)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache = rc
	if r, ok := rc.(*cache.Redis); ok {
		env.closers = append(env.closers, func() { _ = r.Close() })
	}

	env.Metrics = monitoring.NewMetrics()
	env.Metrics.WatchCache(rc)
	env.Auditor = monitoring.NewAuditor(monitoring.DefaultAuditConfig())
	env.Alerter = monitoring.NewAlerter(c.Monitoring)

	if withSource {
		src, err := initSource(c, st)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Guard = resilience.NewGuard(resilience.GuardConfigFrom(c.Provider))
		env.Source = provider.NewGuarded(src, env.Guard)
		breaker := env.Guard.Breaker()
		env.Metrics.WatchCircuit(func() int { return int(breaker.State()) })
	}

	defaultMode, err := model.ParseMode(c.Grading.Mode)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Service = grading.NewService(grading.Deps{
		Engine:   engine,
		Provider: env.Source,
		Store:    st,
		Cache:    rc,
		Auditor:  env.Auditor,
		Alerter:  env.Alerter,
		Metrics:  env.Metrics,
	}, grading.ServiceConfig{
		DefaultLimit:   c.Batch.DefaultLimit,
		MaxConcurrency: c.Batch.MaxConcurrency,
		DefaultMode:    defaultMode,
		StaleAfter:     c.Cache.StaleAfter(),
	})

	zap.L().Debug("grading environment ready",
		zap.String("store", c.Store.Driver),
		zap.String("cache", rc.Stats().Backend),
		zap.String("version", engine.Version()),
		zap.Bool("provider", withSource),
		zap.Duration("stale_after", c.Cache.StaleAfter()),
	)
	return env, nil
}

// shutdownTimeout bounds graceful shutdown of long-running commands.
const shutdownTimeout = 10 * time.Second
