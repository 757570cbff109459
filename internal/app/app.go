package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/walkbot/core/bootstrap"
	"github.com/m3rciful/walkbot/core/logger"
	tg "github.com/m3rciful/walkbot/core/telegram"
	"github.com/m3rciful/walkbot/core/telegram/middleware"
	"github.com/m3rciful/walkbot/internal/announcement"
	"github.com/m3rciful/walkbot/internal/bot"
	"github.com/m3rciful/walkbot/internal/gateway"
	"github.com/m3rciful/walkbot/internal/httpapi"
	"github.com/m3rciful/walkbot/internal/messages"
	"github.com/m3rciful/walkbot/internal/moderation"
	"github.com/m3rciful/walkbot/internal/session"
)

// App holds the wired services of a running walkbot.
type App struct {
	cfg *Config

	db    *sqlx.DB
	redis *redis.Client

	texts    *messages.Catalog
	traffic  *middleware.Traffic
	sessions session.Store
	store    announcement.Store
	gateway  *gateway.Telegram
	mod      *moderation.Coordinator
	machine  *session.Machine
	events   *announcement.Service
	bot      *bot.Bot
	http     *httpapi.Server

	httpStop context.CancelFunc
	httpDone chan error
}

// Bootstrap initializes logging and the configured backends, then wires the services.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	opts := bootstrap.Options{Config: &cfg.Core}
	if cfg.Storage.Announcements == BackendPostgres {
		opts.Database = cfg.Database
	}
	if cfg.Storage.Sessions == BackendRedis {
		opts.Redis = &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	}
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	a, err := New(cfg, res.DB, res.Redis)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}

// New wires the services over already opened backends. db is required for postgres
// announcements and rdb for redis sessions.
func New(cfg *Config, db *sqlx.DB, rdb *redis.Client) (*App, error) {
	a := &App{cfg: cfg, db: db, redis: rdb, traffic: middleware.NewTraffic()}

	texts, err := messages.New(messages.Options{
		Locale:  cfg.Walks.Locale,
		Hashtag: cfg.Walks.Hashtag,
		Channel: cfg.Walks.ChannelUsername,
	})
	if err != nil {
		return nil, fmt.Errorf("app: messages: %w", err)
	}
	if missing := texts.Missing(); len(missing) > 0 {
		logger.Warn(context.Background(), logger.CompApp, "messages.missing",
			slog.String("locale", texts.Locale()),
			slog.Any("keys", missing),
		)
	}
	a.texts = texts

	switch cfg.Storage.Sessions {
	case BackendRedis:
		if rdb == nil {
			return nil, errors.New("app: redis sessions need a client")
		}
		a.sessions = session.NewRedisStore(rdb, session.RedisOptions{Prefix: cfg.Redis.Prefix, TTL: cfg.Redis.TTL})
	default:
		a.sessions = session.NewMemoryStore()
	}

	switch cfg.Storage.Announcements {
	case BackendPostgres:
		if db == nil {
			return nil, errors.New("app: postgres announcements need a database")
		}
		a.store = announcement.NewPostgresStore(db)
	default:
		a.store = announcement.NewMemoryStore()
	}

	a.gateway = gateway.NewTelegram()
	a.mod = moderation.NewCoordinator(moderation.Config{
		ModeratorChatID: cfg.Walks.ModeratorChatID,
		ChannelID:       cfg.Walks.ChannelID,
		ChannelUsername: cfg.Walks.ChannelUsername,
	}, a.store, a.sessions, a.gateway, texts)
	a.machine = session.NewMachine(a.sessions, a.store, a.mod)
	a.events = announcement.NewService(a.store, a.gateway)

	a.bot, err = bot.New(bot.Options{
		Machine:       a.machine,
		Announcements: a.events,
		Moderation:    a.mod,
		Texts:         texts,
		Moderators: middleware.ModeratorOptions{
			ModeratorIDs:    cfg.Walks.ModeratorIDs,
			ModeratorChatID: cfg.Walks.ModeratorChatID,
		},
	})
	if err != nil {
		return nil, err
	}

	if cfg.HTTP.Listen != "" {
		a.http = httpapi.NewServer(httpapi.Options{
			Listen:        cfg.HTTP.Listen,
			Token:         cfg.HTTP.Token,
			Announcements: a.events,
			Sessions:      a.sessions,
			Traffic:       a.traffic,
			Outbound:      a.gateway,
		})
	}

	logger.Info(context.Background(), logger.CompApp, "wired",
		slog.String("announcements", cfg.Storage.Announcements),
		slog.String("sessions", cfg.Storage.Sessions),
		slog.String("locale", texts.Locale()),
		slog.Bool("http", a.http != nil),
	)
	return a, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}
	return tg.RunOptions{
		Config:   &a.cfg.Core,
		Registry: reg,
		Menu:     tg.MenuOptions{ModeratorChatID: a.cfg.Walks.ModeratorChatID},
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Core, tg.MiddlewareOptions{
			OnLimited: a.bot.RateLimited,
			Traffic:   a.traffic,
		}),
		Routes:  a.bot.Routes(reg),
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.gateway.Attach(rt.Bot, rt.Dispatcher)
	}
	if a.http != nil {
		httpCtx, cancel := context.WithCancel(ctx)
		a.httpStop = cancel
		a.httpDone = make(chan error, 1)
		go func() {
			err := a.http.Run(httpCtx)
			if err != nil {
				logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "serve", logger.Err(err))
			}
			a.httpDone <- err
		}()
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	if a.httpStop != nil {
		a.httpStop()
		select {
		case <-a.httpDone:
		case <-ctx.Done():
		}
	}
	return (&bootstrap.Result{DB: a.db, Redis: a.redis}).Close()
}
