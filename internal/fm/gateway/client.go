package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fm-arb-bot/internal/market"
)

// Sender carries an encoded action frame to the marketplace.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// Client converts orders into msgpack action frames and pushes them down
// the shared marketplace connection.
type Client struct {
	sender Sender
	log    *zap.Logger
}

func NewClient(sender Sender, log *zap.Logger) *Client {
	return &Client{sender: sender, log: log}
}

func (c *Client) Submit(ctx context.Context, o market.Order) error {
	var (
		data []byte
		err  error
	)
	switch o.Kind {
	case market.KindLimit:
		wire, werr := LimitWire(o)
		if werr != nil {
			return werr
		}
		data, err = EncodeOrderAction(wire)
	case market.KindCancel:
		wire, werr := CancelWireFor(o)
		if werr != nil {
			return werr
		}
		data, err = EncodeCancelAction(wire)
	default:
		return fmt.Errorf("unsupported order kind %q", o.Kind)
	}
	if err != nil {
		return fmt.Errorf("encode %s action: %w", o.Kind, err)
	}
	if err := c.sender.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s action: %w", o.Kind, err)
	}
	c.log.Debug("action sent",
		zap.String("kind", string(o.Kind)),
		zap.Int("market", o.MarketID),
		zap.String("ref", o.Ref))
	return nil
}
