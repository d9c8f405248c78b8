package feed

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"fm-arb-bot/internal/account"
	"fm-arb-bot/internal/fm/ws"
	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/strategy"
)

// Handler receives decoded marketplace notifications. All calls happen on
// the single ws read goroutine, so handlers see them serialized in arrival
// order.
type Handler interface {
	OnSession(phase strategy.SessionPhase, sessionID int64)
	OnHoldings(h account.Holdings)
	OnOrders(orders []market.Order)
	OnOrderAccepted(o market.Order)
	OnOrderRejected(info map[string]string, o market.Order)
}

type Feed struct {
	ws      *ws.Client
	handler Handler
	log     *zap.Logger
}

func New(wsClient *ws.Client, handler Handler, log *zap.Logger) *Feed {
	return &Feed{ws: wsClient, handler: handler, log: log}
}

func (f *Feed) Start(ctx context.Context) error {
	if err := f.ws.Connect(ctx); err != nil {
		return err
	}
	for _, channel := range []string{"session", "holdings", "orders", "order_accepted", "order_rejected"} {
		sub := map[string]any{"method": "subscribe", "channel": channel}
		if err := f.ws.Subscribe(ctx, sub); err != nil {
			return err
		}
	}
	go func() {
		_ = f.ws.Run(ctx, f.handleMessage)
	}()
	return nil
}

func (f *Feed) handleMessage(msg json.RawMessage) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		f.log.Debug("ws decode error", zap.Error(err))
		return
	}
	switch env.Channel {
	case "session":
		phase, id, err := parseSession(env.Data)
		if err != nil {
			f.log.Warn("session decode error", zap.Error(err))
			return
		}
		f.handler.OnSession(phase, id)
	case "holdings":
		holdings, err := parseHoldings(env.Data)
		if err != nil {
			f.log.Warn("holdings decode error", zap.Error(err))
			return
		}
		f.handler.OnHoldings(holdings)
	case "orders":
		orders, err := parseOrders(env.Data)
		if err != nil {
			f.log.Warn("orders decode error", zap.Error(err))
			return
		}
		f.handler.OnOrders(orders)
	case "order_accepted":
		order, err := parseOrder(env.Data)
		if err != nil {
			f.log.Warn("order_accepted decode error", zap.Error(err))
			return
		}
		f.handler.OnOrderAccepted(order)
	case "order_rejected":
		info, order, err := parseRejection(env.Data)
		if err != nil {
			f.log.Warn("order_rejected decode error", zap.Error(err))
			return
		}
		f.handler.OnOrderRejected(info, order)
	case "pong", "subscribed":
		// keepalive and subscription acks
	default:
		f.log.Debug("unhandled channel", zap.String("channel", env.Channel))
	}
}
