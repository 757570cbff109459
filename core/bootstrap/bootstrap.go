// Package bootstrap brings up the process-wide infrastructure before the bot is wired:
// logging first, then whichever backends the configuration asks for.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/walkbot/core/config"
	coredatabase "github.com/m3rciful/walkbot/core/database"
	"github.com/m3rciful/walkbot/core/logger"
)

const redisPingTimeout = 5 * time.Second

// Options select the backends to open. A disabled Database and a nil Redis are skipped.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	Redis    *redis.Options

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
	DialRedis  func(context.Context, *redis.Options) (*redis.Client, error)
}

// Result holds the opened backends; fields for skipped backends are nil.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close releases every opened backend.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger, then connects and migrates the database and dials redis when
// requested. On failure everything opened so far is closed again.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database.Enabled() {
		db, err := openDatabase(opts)
		if err != nil {
			return nil, err
		}
		res.DB = db
	}

	if opts.Redis != nil {
		dial := opts.DialRedis
		if dial == nil {
			dial = DialRedis
		}
		rdb, err := dial(context.Background(), opts.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		res.Redis = rdb
	}
	return res, nil
}

func openDatabase(opts Options) (*sqlx.DB, error) {
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return db, nil
}

// DialRedis opens a client and pings it.
func DialRedis(ctx context.Context, o *redis.Options) (*redis.Client, error) {
	rdb := redis.NewClient(o)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logger.LogEvent(ctx, logger.TWire, slog.LevelInfo, "redis.connected",
		slog.String("addr", o.Addr),
		slog.Int("db", o.DB),
	)
	return rdb, nil
}
