// Package bot binds the flow controllers to Telegram: commands, menu labels,
// state-bound text and photo handlers, and inline button callbacks.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/meowbot/core/bootstrap"
	"github.com/m3rciful/meowbot/core/logger"
	coretelegram "github.com/m3rciful/meowbot/core/telegram"
	"github.com/m3rciful/meowbot/core/telegram/router"
	tgsender "github.com/m3rciful/meowbot/core/telegram/sender"
	"github.com/m3rciful/meowbot/core/telegram/state"
	"github.com/m3rciful/meowbot/internal/auth"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
	"github.com/m3rciful/meowbot/internal/config"
	"github.com/m3rciful/meowbot/internal/flow"
	"github.com/m3rciful/meowbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const component = "bot"

// App is the wired bot.
type App struct {
	cfg      *config.Config
	infra    *bootstrap.Result
	sessions *session.Store
	purge    func(context.Context) (int64, error)
	flows    *flow.Flows
	out      *chatSender
	name     atomic.Value
}

// New builds the stores, the backend client and the controllers. infra
// carries the redis and postgres handles the selected backends need.
func New(cfg *config.Config, infra *bootstrap.Result) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	api, err := backend.New(backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout(),
		MaxRetries: cfg.Backend.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	var tokens auth.Store
	switch cfg.Tokens.Store {
	case config.StoreRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("bot: token store %q needs redis", cfg.Tokens.Store)
		}
		tokens = auth.NewRedisStore(infra.Redis)
	default:
		tokens = auth.NewMemoryStore(nil)
	}

	a := &App{cfg: cfg, infra: infra, out: &chatSender{}}
	var sb session.Backend
	switch cfg.Session.Backend {
	case config.StoreRedis:
		if infra.Redis == nil {
			return nil, fmt.Errorf("bot: session backend %q needs redis", cfg.Session.Backend)
		}
		sb = session.NewRedis(infra.Redis, cfg.Session.TTL())
	case config.StorePostgres:
		if infra.DB == nil {
			return nil, fmt.Errorf("bot: session backend %q needs postgres", cfg.Session.Backend)
		}
		pg := session.NewPostgres(infra.DB, cfg.Session.TTL())
		sb, a.purge = pg, pg.PurgeExpired
	default:
		sb = session.NewMemory(cfg.Session.TTL(), nil)
	}
	a.sessions = session.New(sb)
	a.name.Store("")

	engine := broadcast.New(a.out, broadcast.Options{
		Delay:    cfg.Broadcast.Delay(),
		Batch:    cfg.Broadcast.Batch,
		Classify: tgsender.ClassifyError,
	})
	a.flows = flow.New(flow.Deps{
		Sessions:  a.sessions,
		Auth:      auth.New(tokens, api, cfg.Tokens.TTL()),
		API:       api,
		Broadcast: engine,
		Settings: flow.Settings{
			MinDeposit:      cfg.Payment.MinDeposit,
			CardNumber:      cfg.Payment.CardNumber,
			CardHolder:      cfg.Payment.CardHolder,
			SupportUsername: cfg.Support.Username,
			PublicURL:       cfg.Subscription.PublicURL,
			BotUsername:     a.username,
		},
	})

	logger.Info(context.Background(), component, "app.wired",
		slog.String("status", "ok"),
		slog.String("session_backend", cfg.Session.Backend),
		slog.String("token_store", cfg.Tokens.Store),
		slog.String("backend", cfg.Backend.BaseURL),
	)
	return a, nil
}

func (a *App) username() string {
	s, _ := a.name.Load().(string)
	return s
}

// TelegramRunOptions assembles the registry and routes for the core runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	machine := state.NewMachine(a.sessions)
	if err := a.register(reg, machine); err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(machine, reg, router.TextOptions{})...)

	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, state.NewLocker(), nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.attach(rt.Bot)
	if a.purge != nil {
		n, err := a.purge(ctx)
		if err != nil {
			logger.Warn(ctx, component, "session.purge",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		} else {
			logger.Info(ctx, component, "session.purge",
				slog.String("status", "ok"),
				slog.Int64("rows", n),
			)
		}
	}
	return nil
}

func (a *App) attach(b *tele.Bot) {
	a.out.bot.Store(b)
	if b != nil && b.Me != nil {
		a.name.Store(b.Me.Username)
	}
}

func (a *App) onStop(context.Context, coretelegram.Runtime) error {
	return a.infra.Close()
}
