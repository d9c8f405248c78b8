package feed

import (
	"encoding/json"
	"fmt"
	"strconv"

	"fm-arb-bot/internal/account"
	"fm-arb-bot/internal/market"
	"fm-arb-bot/internal/strategy"
)

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type sessionMsg struct {
	Phase string `json:"phase"`
	ID    int64  `json:"id"`
}

type cashMsg struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
}

type assetMsg struct {
	Units     int `json:"units"`
	Available int `json:"available"`
}

type holdingsMsg struct {
	Cash   cashMsg             `json:"cash"`
	Assets map[string]assetMsg `json:"assets"`
}

type orderMsg struct {
	ID        int64  `json:"id"`
	Market    int    `json:"market"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Price     int64  `json:"price"`
	Units     int    `json:"units"`
	Mine      bool   `json:"mine"`
	Ref       string `json:"ref"`
	Traded    bool   `json:"traded"`
	Cancelled bool   `json:"cancelled"`
	Target    string `json:"target"`
}

type rejectionMsg struct {
	Info  map[string]string `json:"info"`
	Order orderMsg          `json:"order"`
}

func parseSession(data json.RawMessage) (strategy.SessionPhase, int64, error) {
	var msg sessionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", 0, err
	}
	switch msg.Phase {
	case string(strategy.SessionOpen), string(strategy.SessionPaused), string(strategy.SessionClosed):
		return strategy.SessionPhase(msg.Phase), msg.ID, nil
	default:
		return "", 0, fmt.Errorf("unknown session phase %q", msg.Phase)
	}
}

func parseHoldings(data json.RawMessage) (account.Holdings, error) {
	var msg holdingsMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return account.Holdings{}, err
	}
	holdings := account.Holdings{
		Cash:          msg.Cash.Total,
		CashAvailable: msg.Cash.Available,
		Assets:        make(map[int]account.Asset, len(msg.Assets)),
	}
	for key, asset := range msg.Assets {
		marketID, err := strconv.Atoi(key)
		if err != nil {
			return account.Holdings{}, fmt.Errorf("bad asset key %q: %w", key, err)
		}
		holdings.Assets[marketID] = account.Asset{Units: asset.Units, UnitsAvailable: asset.Available}
	}
	return holdings, nil
}

func parseOrders(data json.RawMessage) ([]market.Order, error) {
	var msgs []orderMsg
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	orders := make([]market.Order, 0, len(msgs))
	for _, msg := range msgs {
		order, err := orderFromMsg(msg)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseOrder(data json.RawMessage) (market.Order, error) {
	var msg orderMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return market.Order{}, err
	}
	return orderFromMsg(msg)
}

func parseRejection(data json.RawMessage) (map[string]string, market.Order, error) {
	var msg rejectionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, market.Order{}, err
	}
	order, err := orderFromMsg(msg.Order)
	if err != nil {
		return nil, market.Order{}, err
	}
	if msg.Info == nil {
		msg.Info = map[string]string{}
	}
	return msg.Info, order, nil
}

func orderFromMsg(msg orderMsg) (market.Order, error) {
	var side market.Side
	switch msg.Side {
	case string(market.SideBuy):
		side = market.SideBuy
	case string(market.SideSell):
		side = market.SideSell
	default:
		return market.Order{}, fmt.Errorf("unknown order side %q", msg.Side)
	}
	var kind market.Kind
	switch msg.Type {
	case string(market.KindLimit):
		kind = market.KindLimit
	case string(market.KindCancel):
		kind = market.KindCancel
	default:
		return market.Order{}, fmt.Errorf("unknown order type %q", msg.Type)
	}
	return market.Order{
		ID:        msg.ID,
		MarketID:  msg.Market,
		Side:      side,
		Kind:      kind,
		Price:     msg.Price,
		Units:     msg.Units,
		Mine:      msg.Mine,
		Ref:       msg.Ref,
		Traded:    msg.Traded,
		Cancelled: msg.Cancelled,
		Target:    msg.Target,
	}, nil
}
