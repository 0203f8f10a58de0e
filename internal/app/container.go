package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/lakron/internal/identity/application/auth"
	identityDomain "github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/identity/infrastructure/passwords"
	"github.com/felixgeelhaar/lakron/internal/identity/infrastructure/session"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/reconcile"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/caldav"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/changefeed"
	schedulePersistence "github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/persistence"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database/postgres" // Register Postgres driver
	_ "github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/resilience"
	"github.com/felixgeelhaar/lakron/pkg/config"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// ErrFeedNeedsPostgres is returned when the Postgres change feed is chosen
// over a SQLite store.
var ErrFeedNeedsPostgres = errors.New("postgres change feed requires a postgres database")

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics

	// Database
	DBConn     database.Connection
	DBDriver   database.Driver
	UnitOfWork *database.UnitOfWork

	// Change feed. Bus is nil when the database publishes changes itself.
	Bus      eventbus.Bus
	Feed     reconcile.Feed
	FeedKind string

	// Repositories
	Breaker     *resilience.Breaker
	TaskRepo    domain.Repository
	ProfileRepo identityDomain.Repository

	// Identity
	Auth     *auth.Service
	Sessions *session.FileStore

	Health *observability.HealthRegistry
}

// NewContainer opens the store, applies migrations and wires the task
// repository stack and change feed selected by cfg.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	conn, err := database.Open(ctx, database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("database connected", "driver", c.DBDriver)

	if err := migrations.Run(ctx, conn); err != nil {
		c.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	c.UnitOfWork = database.NewUnitOfWork(conn)
	factory := NewRepositoryFactory(conn)

	if err := c.initTaskRepository(ctx, factory); err != nil {
		c.Close()
		return nil, err
	}

	profiles, err := factory.ProfileRepository()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.ProfileRepo = profiles
	c.Auth = auth.NewService(
		profiles,
		c.UnitOfWork,
		passwords.NewArgon2Hasher(passwords.DefaultParams()),
		cfg.KDFIterations,
		logger.With("component", "auth"),
	)
	c.Sessions = session.NewFileStore(cfg.SessionPath)

	c.Health.Register("database", observability.PingChecker(conn.Ping, observability.HealthStatusUnhealthy))
	if pinger, ok := c.Bus.(interface{ Ping(context.Context) error }); ok {
		c.Health.Register("changefeed", observability.PingChecker(pinger.Ping, observability.HealthStatusDegraded))
	}

	return c, nil
}

func (c *Container) initTaskRepository(ctx context.Context, factory *RepositoryFactory) error {
	base, err := factory.TaskRepository()
	if err != nil {
		return err
	}

	breakerCfg := resilience.DefaultBreakerConfig("task-store")
	if c.Config.BreakerFailures > 0 {
		breakerCfg.FailureThreshold = uint32(c.Config.BreakerFailures)
	}
	if c.Config.BreakerTimeout > 0 {
		breakerCfg.Timeout = c.Config.BreakerTimeout
	}
	breakerCfg.Expected = []error{domain.ErrNotFound}
	c.Breaker = resilience.NewBreaker(breakerCfg, c.Logger, c.Metrics)

	var repo domain.Repository = schedulePersistence.NewBreakerRepository(base, c.Breaker)

	c.FeedKind = c.Config.ResolvedChangeFeed()
	feedLogger := c.Logger.With("component", "changefeed", "backend", c.FeedKind)

	switch c.FeedKind {
	case config.ChangeFeedPostgres:
		if c.DBDriver != database.DriverPostgres {
			return ErrFeedNeedsPostgres
		}
		c.Feed = changefeed.NewPostgresFeed(c.Config.DatabaseURL, repo, feedLogger)
	case config.ChangeFeedRedis:
		bus, err := eventbus.NewRedisBus(ctx, c.Config.RedisURL, feedLogger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		c.Bus = bus
	case config.ChangeFeedRabbitMQ:
		bus, err := eventbus.NewRabbitMQBus(c.Config.RabbitMQURL, feedLogger)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		c.Bus = bus
	case config.ChangeFeedInProcess:
		c.Bus = eventbus.NewInProcessBus(feedLogger)
	default:
		return fmt.Errorf("unknown change feed: %s", c.FeedKind)
	}

	if c.Bus != nil {
		repo = changefeed.NewPublishingRepository(repo, c.Bus, feedLogger, c.Metrics)
		c.Feed = changefeed.NewBusFeed(c.Bus, feedLogger)
	}
	c.TaskRepo = repo

	c.Logger.Info("change feed ready", "backend", c.FeedKind)
	return nil
}

// CalDAVSyncer returns a syncer for the configured server, or nil when CalDAV
// is not configured.
func (c *Container) CalDAVSyncer() *caldav.Syncer {
	if !c.Config.CalDAVEnabled() {
		return nil
	}
	return caldav.NewSyncer(
		c.Config.CalDAVURL,
		c.Config.CalDAVUsername,
		c.Config.CalDAVPassword,
		c.Logger.With("component", "caldav"),
	).WithCalendarPath(c.Config.CalDAVCalendarPath)
}

// Close releases the change feed and the database connection.
func (c *Container) Close() {
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			c.Logger.Warn("error closing event bus", "error", err)
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}

// Workspace is the task collection of one signed-in profile together with
// the handlers that act on it.
type Workspace struct {
	Session  identityDomain.Session
	Engine   *reconcile.Engine
	Calendar *queries.Calendar

	AddTask    *commands.AddTaskHandler
	ToggleTask *commands.ToggleTaskHandler
	DeleteTask *commands.DeleteTaskHandler
}

// OpenWorkspace starts an engine for sess and loads its collection. Task
// text is sealed with the session's data key.
func (c *Container) OpenWorkspace(ctx context.Context, sess identityDomain.Session) (*Workspace, error) {
	var cipher reconcile.Cipher
	if len(sess.Key) > 0 {
		enc, err := crypto.NewAESGCM(sess.Key)
		if err != nil {
			return nil, fmt.Errorf("session key: %w", err)
		}
		cipher = crypto.NewTextCipher(enc)
	}

	logger := c.Logger.With("profile_id", sess.ProfileID)
	engine := reconcile.NewEngine(reconcile.Config{
		Repo:   c.TaskRepo,
		Feed:   c.Feed,
		Cipher: cipher,
		Retry: reconcile.RetryPolicy{
			MaxAttempts: c.Config.SubscribeMaxAttempts,
			Backoff:     c.Config.SubscribeBackoff,
		},
		Logger:  logger.With("component", "engine"),
		Metrics: c.Metrics,
	})
	engine.SetProfile(ctx, sess.ProfileID)

	return &Workspace{
		Session:    sess,
		Engine:     engine,
		Calendar:   queries.NewCalendar(engine, time.Now),
		AddTask:    commands.NewAddTaskHandler(engine, logger, c.Metrics),
		ToggleTask: commands.NewToggleTaskHandler(engine, logger, c.Metrics),
		DeleteTask: commands.NewDeleteTaskHandler(engine, logger, c.Metrics),
	}, nil
}

// CurrentWorkspace opens the workspace of the stored session.
// identityDomain.ErrNoSession is returned when nobody is signed in.
func (c *Container) CurrentWorkspace(ctx context.Context) (*Workspace, error) {
	sess, err := c.Sessions.Load()
	if err != nil {
		return nil, err
	}
	return c.OpenWorkspace(ctx, sess)
}

// Close releases the engine's subscription.
func (w *Workspace) Close() {
	w.Engine.Close()
}
