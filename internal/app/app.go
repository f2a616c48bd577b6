// Package app wires the bot together and owns its lifecycle: REST clients,
// the persistent stores, the three websocket feeds and the HTTP surface.
package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bn-ladder-bot/internal/alerts"
	"bn-ladder-bot/internal/bn/rest"
	"bn-ladder-bot/internal/bn/ws"
	"bn-ladder-bot/internal/config"
	"bn-ladder-bot/internal/feed"
	"bn-ladder-bot/internal/httpapi"
	"bn-ladder-bot/internal/journal"
	"bn-ladder-bot/internal/metrics"
	"bn-ladder-bot/internal/state"
	"bn-ladder-bot/internal/strategy"
	"bn-ladder-bot/internal/timescale"

	"go.uber.org/zap"
)

type App struct {
	cfg        *config.Config
	log        *zap.Logger
	rest       *rest.Client
	reconciler *strategy.Reconciler
	hedger     *strategy.Hedger
	evaluator  *strategy.Evaluator
	router     *strategy.Router
	journal    *journal.Journal
	recorder   *timescale.Writer
	prom       *metrics.Prometheus
	api        *httpapi.Server
	alerts     *alerts.Telegram
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}

	restClient := rest.New(rest.Config{
		SpotBaseURL:    cfg.Spot.RESTBaseURL,
		FuturesBaseURL: cfg.Futures.RESTBaseURL,
		APIKey:         creds.APIKey,
		APISecret:      creds.APISecret,
		Timeout:        cfg.Spot.Timeout,
	}, log)

	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
	}

	recorder, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		log.Warn("timescale recorder disabled", zap.Error(err))
		recorder = nil
	}

	prom := metrics.NewPrometheus()
	m := prom.Metrics

	reconciler := strategy.NewReconciler(restClient, j, m, log)
	hedger := strategy.NewHedger(restClient, reconciler, j, m, log)
	evaluator := strategy.NewEvaluator(hedger, recorder, log)
	router := strategy.NewRouter(restClient, reconciler, j, m, recorder, log)
	api := httpapi.New(cfg.HTTP.Bind, prom.Handler(), log)
	alertsClient := alerts.NewTelegram(cfg.Telegram, log)

	return &App{
		cfg:        cfg,
		log:        log,
		rest:       restClient,
		reconciler: reconciler,
		hedger:     hedger,
		evaluator:  evaluator,
		router:     router,
		journal:    j,
		recorder:   recorder,
		prom:       prom,
		api:        api,
		alerts:     alertsClient,
	}, nil
}

// Run seeds the stores, places the opening ladder and serves the feeds
// until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.journal.Close()
	defer func() {
		if a.recorder != nil {
			_ = a.recorder.Close()
		}
	}()
	if a.recorder != nil {
		a.recorder.Start(ctx)
	}

	state.SetAsset(state.AssetState{
		Symbol:   a.cfg.Strategy.Symbol,
		TickSize: a.cfg.Strategy.TickSize,
	})
	state.SetOrders(state.NewOrdersState(a.cfg.Strategy.AmountTarget))

	// One reconcile pass before any feed is up puts the opening ladder on
	// the book.
	a.reconciler.RefreshAndRun(ctx)
	a.alerts.Notify(ctx, "ladder bot started: %s", a.cfg.Strategy.Symbol)
	defer a.alerts.Notify(context.Background(), "ladder bot stopped: %s", a.cfg.Strategy.Symbol)

	m := a.prom.Metrics
	symbol := strings.ToLower(a.cfg.Strategy.Symbol)
	delay := a.cfg.Strategy.ReconnectDelay

	bookTicker := feed.NewBookTickerHandler(a.evaluator, m, a.log)
	bookSub := ws.New(ws.StreamURL(a.cfg.Spot.WSBaseURL, symbol+"@bookTicker"), delay, a.log)
	go func() { _ = bookSub.Run(ctx, func(frame json.RawMessage) { bookTicker.Handle(ctx, frame) }) }()

	aggTrade := feed.NewAggTradeHandler(m, a.log)
	aggSub := ws.New(ws.StreamURL(a.cfg.Spot.WSBaseURL, symbol+"@aggTrade"), delay, a.log)
	go func() { _ = aggSub.Run(ctx, func(frame json.RawMessage) { aggTrade.Handle(ctx, frame) }) }()

	userStream := feed.NewUserStreamHandler(a.router, m, a.log)
	go a.userStreamLoop(ctx, userStream)

	return a.api.Run(ctx)
}

// userStreamLoop owns the listen-key lifecycle: one key per websocket
// session, kept alive on a timer that dies with the session, and a fresh
// key after every disconnect.
func (a *App) userStreamLoop(ctx context.Context, handler *feed.UserStreamHandler) {
	delay := a.cfg.Strategy.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	for {
		if ctx.Err() != nil {
			return
		}
		listenKey, err := a.rest.CreateListenKey(ctx)
		if err != nil {
			a.log.Warn("listen key create failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		sessionCtx, cancel := context.WithCancel(ctx)
		go a.keepAliveLoop(sessionCtx, listenKey)

		sub := ws.New(ws.StreamURL(a.cfg.Spot.WSBaseURL, listenKey), delay, a.log)
		err = sub.RunOnce(sessionCtx, func(frame json.RawMessage) { handler.Handle(sessionCtx, frame) })
		cancel()
		if ctx.Err() != nil {
			return
		}
		a.log.Warn("user stream session ended", zap.Error(err))
		a.alerts.Notify(ctx, "user stream dropped, reconnecting: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (a *App) keepAliveLoop(ctx context.Context, listenKey string) {
	interval := a.cfg.Strategy.KeepAliveInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.rest.KeepAliveListenKey(ctx, listenKey); err != nil {
				a.log.Warn("listen key keepalive failed", zap.Error(err))
			}
		}
	}
}
