package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fm-arb-bot/internal/account"
	"fm-arb-bot/internal/alerts"
	"fm-arb-bot/internal/config"
	"fm-arb-bot/internal/exec"
	"fm-arb-bot/internal/fm/feed"
	"fm-arb-bot/internal/fm/gateway"
	"fm-arb-bot/internal/fm/ws"
	"fm-arb-bot/internal/journal"
	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/metrics"
	"fm-arb-bot/internal/state/sqlite"
	"fm-arb-bot/internal/strategy"

	"go.uber.org/zap"
)

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *sqlite.Store
	ws      *ws.Client
	feed    *feed.Feed
	engine  *strategy.Engine
	prom    *metrics.Prometheus
	journal *journal.Writer
	alerts  *alerts.Telegram
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	markets := make([]market.Market, 0, len(cfg.Markets))
	for _, m := range cfg.Markets {
		markets = append(markets, market.Market{ID: m.ID, Name: m.Name, Tick: m.Tick, Private: m.Private})
	}
	directory, err := market.NewDirectory(markets)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	public, private, err := directory.Pair(cfg.Strategy.PublicMarket, cfg.Strategy.PrivateMarket)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("resolve market pair: %w", err)
	}

	wsClient := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	wsClient.SetCredentials(creds)
	gatewayClient := gateway.NewClient(wsClient, log)
	executor := exec.New(gatewayClient, store, cfg.WS.SubmitTimeout, log)

	engineMetrics := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		engineMetrics = prom.Metrics
	}

	holdings := account.NewTracker(log)
	engine := strategy.NewEngine(strategy.Config{
		Public:       public,
		Private:      private,
		Counterparty: cfg.Strategy.Counterparty,
		Threshold:    cfg.Strategy.Threshold,
	}, executor, holdings, engineMetrics, log)

	journalWriter, err := journal.New(cfg.Journal, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	alertsClient := alerts.NewTelegram(cfg.Telegram, log)
	engine.SetRecorder(&recorder{journal: journalWriter, alerts: alertsClient, log: log})

	return &App{
		cfg:     cfg,
		log:     log,
		store:   store,
		ws:      wsClient,
		feed:    feed.New(wsClient, engine, log),
		engine:  engine,
		prom:    prom,
		journal: journalWriter,
		alerts:  alertsClient,
	}, nil
}

// credentialsFromEnv reads the marketplace login from the environment,
// usually populated by config.LoadEnv from a .env file.
func credentialsFromEnv() (ws.Credentials, error) {
	creds := ws.Credentials{
		Account:  strings.TrimSpace(os.Getenv("FM_ACCOUNT")),
		Email:    strings.TrimSpace(os.Getenv("FM_EMAIL")),
		Password: os.Getenv("FM_PASSWORD"),
	}
	if creds.Account == "" {
		return ws.Credentials{}, errors.New("FM_ACCOUNT is required")
	}
	if creds.Email == "" {
		return ws.Credentials{}, errors.New("FM_EMAIL is required")
	}
	if creds.Password == "" {
		return ws.Credentials{}, errors.New("FM_PASSWORD is required")
	}
	return creds, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.journal.Close()

	a.journal.Start(ctx)

	var metricsServer *http.Server
	if a.prom != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.prom.Handler())
		metricsServer = &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := a.feed.Start(ctx); err != nil {
		return err
	}
	a.log.Info("connected to marketplace",
		zap.String("url", a.cfg.WS.URL),
		zap.Int("public_market", a.cfg.Strategy.PublicMarket),
		zap.Int("private_market", a.cfg.Strategy.PrivateMarket),
		zap.Int64("threshold", a.cfg.Strategy.Threshold))

	<-ctx.Done()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return ctx.Err()
}

// recorder fans engine observations out to the journal and, for completed
// hedge outcomes, to telegram. Alert sends run off the notification path.
type recorder struct {
	journal *journal.Writer
	alerts  *alerts.Telegram
	log     *zap.Logger
}

func (r *recorder) RecordCycle(c strategy.CycleRecord) {
	r.journal.RecordCycle(c)
}

func (r *recorder) RecordOrderEvent(e strategy.OrderEvent) {
	r.journal.RecordOrderEvent(e)
	switch e.Event {
	case strategy.EventNameHedgePlaced:
		go r.notify(func(ctx context.Context) error {
			return r.alerts.HedgePlaced(ctx, string(e.Side), e.Price)
		})
	case strategy.EventNameHedgeAbandoned:
		go r.notify(func(ctx context.Context) error {
			return r.alerts.HedgeAbandoned(ctx, e.Ref)
		})
	}
}

func (r *recorder) notify(send func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := send(ctx); err != nil {
		r.log.Warn("alert send failed", zap.Error(err))
	}
}
