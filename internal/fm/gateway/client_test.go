package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"fm-arb-bot/internal/market"
)

type captureSender struct {
	frames [][]byte
	err    error
}

func (s *captureSender) Send(_ context.Context, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, data)
	return nil
}

func TestClientSubmitLimit(t *testing.T) {
	sender := &captureSender{}
	client := NewClient(sender, zap.NewNop())

	order := market.Order{
		MarketID: 2681,
		Side:     market.SideBuy,
		Kind:     market.KindLimit,
		Price:    490,
		Units:    1,
		Ref:      "take-BUY-490-1",
	}
	if err := client.Submit(context.Background(), order); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(sender.frames) != 1 {
		t.Fatalf("frames = %d", len(sender.frames))
	}
	var decoded map[string]any
	if err := msgpack.Unmarshal(sender.frames[0], &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "order" {
		t.Fatalf("type = %v", decoded["type"])
	}
}

func TestClientSubmitCancel(t *testing.T) {
	sender := &captureSender{}
	client := NewClient(sender, zap.NewNop())

	limit := market.Order{
		ID:       77,
		MarketID: 2681,
		Side:     market.SideBuy,
		Kind:     market.KindLimit,
		Price:    490,
		Units:    1,
	}
	if err := client.Submit(context.Background(), market.CancelFor(limit)); err != nil {
		t.Fatalf("submit cancel: %v", err)
	}
	var decoded map[string]any
	if err := msgpack.Unmarshal(sender.frames[0], &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "cancel" {
		t.Fatalf("type = %v", decoded["type"])
	}
}

func TestClientSubmitSenderError(t *testing.T) {
	sender := &captureSender{err: errors.New("ws not connected")}
	client := NewClient(sender, zap.NewNop())

	order := market.Order{
		MarketID: 2681,
		Side:     market.SideSell,
		Kind:     market.KindLimit,
		Price:    505,
		Units:    1,
		Ref:      "take-SELL-505-1",
	}
	if err := client.Submit(context.Background(), order); err == nil {
		t.Fatalf("sender error not surfaced")
	}
}

func TestClientSubmitInvalidOrder(t *testing.T) {
	sender := &captureSender{}
	client := NewClient(sender, zap.NewNop())

	order := market.Order{MarketID: 2681, Kind: market.KindLimit}
	if err := client.Submit(context.Background(), order); err == nil {
		t.Fatalf("invalid order accepted")
	}
	if len(sender.frames) != 0 {
		t.Fatalf("invalid order reached the sender")
	}
}
