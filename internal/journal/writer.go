package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"fm-arb-bot/internal/config"
	"fm-arb-bot/internal/strategy"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Writer persists decision snapshots and order lifecycle events to
// Postgres. Writes go through bounded channels so a slow database never
// stalls the notification path.
type Writer struct {
	db         *sql.DB
	log        *zap.Logger
	cycles     chan strategy.CycleRecord
	events     chan strategy.OrderEvent
	started    atomic.Bool
	dropCycles atomic.Uint64
	dropEvents atomic.Uint64
}

func New(cfg config.JournalConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("journal dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.Queue
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		cycles: make(chan strategy.CycleRecord, queueSize),
		events: make(chan strategy.OrderEvent, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) RecordCycle(c strategy.CycleRecord) {
	if w == nil {
		return
	}
	select {
	case w.cycles <- c:
		return
	default:
		if w.dropCycles.Add(1) == 1 && w.log != nil {
			w.log.Warn("journal cycle queue full")
		}
	}
}

func (w *Writer) RecordOrderEvent(e strategy.OrderEvent) {
	if w == nil {
		return
	}
	select {
	case w.events <- e:
		return
	default:
		if w.dropEvents.Add(1) == 1 && w.log != nil {
			w.log.Warn("journal event queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-w.cycles:
			w.writeCycle(ctx, c)
		case e := <-w.events:
			w.writeEvent(ctx, e)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("journal db not initialized")
	}
	if err := w.exec(ctx, `CREATE TABLE IF NOT EXISTS decision_snapshots (
		ts TIMESTAMPTZ NOT NULL DEFAULT now(),
		role TEXT NOT NULL,
		has_role BOOLEAN NOT NULL,
		margin BIGINT NOT NULL,
		has_margin BOOLEAN NOT NULL,
		best_public_buy BIGINT NOT NULL,
		best_public_sell BIGINT NOT NULL,
		signal_price BIGINT NOT NULL,
		net_units INTEGER NOT NULL,
		state TEXT NOT NULL
	)`); err != nil {
		return err
	}
	return w.exec(ctx, `CREATE TABLE IF NOT EXISTS order_events (
		ts TIMESTAMPTZ NOT NULL DEFAULT now(),
		event TEXT NOT NULL,
		market INTEGER NOT NULL,
		side TEXT NOT NULL,
		price BIGINT NOT NULL,
		ref TEXT NOT NULL,
		order_id BIGINT NOT NULL
	)`)
}

func (w *Writer) writeCycle(ctx context.Context, c strategy.CycleRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := `INSERT INTO decision_snapshots (
		role, has_role, margin, has_margin, best_public_buy, best_public_sell,
		signal_price, net_units, state
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := w.db.ExecContext(ctx, query,
		string(c.Role),
		c.HasRole,
		c.Margin,
		c.HasMargin,
		c.BestPublicBuy,
		c.BestPublicSell,
		c.SignalPrice,
		c.NetUnits,
		string(c.State),
	); err != nil && w.log != nil {
		w.log.Warn("journal cycle insert failed", zap.Error(err))
	}
}

func (w *Writer) writeEvent(ctx context.Context, e strategy.OrderEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := `INSERT INTO order_events (
		event, market, side, price, ref, order_id
	) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := w.db.ExecContext(ctx, query,
		e.Event,
		e.MarketID,
		string(e.Side),
		e.Price,
		e.Ref,
		e.OrderID,
	); err != nil && w.log != nil {
		w.log.Warn("journal event insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}
