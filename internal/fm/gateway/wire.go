package gateway

import (
	"bytes"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"fm-arb-bot/internal/market"
)

// The marketplace consumes submissions as msgpack action frames. Field
// order is fixed; the encoder is driven by hand so identical submissions
// produce identical bytes.

type OrderWire struct {
	Market int
	IsBuy  bool
	Price  int64
	Units  int
	Ref    string
	Target string
}

type CancelWire struct {
	Market  int
	OrderID int64
	Ref     string
}

func LimitWire(o market.Order) (OrderWire, error) {
	if o.Kind != market.KindLimit {
		return OrderWire{}, errors.New("limit order required")
	}
	if o.Price <= 0 {
		return OrderWire{}, errors.New("price must be positive")
	}
	if o.Units <= 0 {
		return OrderWire{}, errors.New("units must be positive")
	}
	if o.Ref == "" {
		return OrderWire{}, errors.New("ref is required")
	}
	return OrderWire{
		Market: o.MarketID,
		IsBuy:  o.Side == market.SideBuy,
		Price:  o.Price,
		Units:  o.Units,
		Ref:    o.Ref,
		Target: o.Target,
	}, nil
}

func CancelWireFor(o market.Order) (CancelWire, error) {
	if o.Kind != market.KindCancel {
		return CancelWire{}, errors.New("cancel order required")
	}
	if o.ID == 0 {
		return CancelWire{}, errors.New("cancel requires the limit order id")
	}
	return CancelWire{Market: o.MarketID, OrderID: o.ID, Ref: o.Ref}, nil
}

func EncodeOrderAction(order OrderWire) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("type"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("order"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("order"); err != nil {
		return nil, err
	}
	if err := encodeOrderWire(enc, order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeCancelAction(cancel CancelWire) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("type"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("cancel"); err != nil {
		return nil, err
	}
	if err := enc.EncodeString("cancel"); err != nil {
		return nil, err
	}
	if err := encodeCancelWire(enc, cancel); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeOrderWire(enc *msgpack.Encoder, order OrderWire) error {
	mapLen := 5
	if order.Target != "" {
		mapLen++
	}
	if err := enc.EncodeMapLen(mapLen); err != nil {
		return err
	}
	if err := enc.EncodeString("m"); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(order.Market)); err != nil {
		return err
	}
	if err := enc.EncodeString("b"); err != nil {
		return err
	}
	if err := enc.EncodeBool(order.IsBuy); err != nil {
		return err
	}
	if err := enc.EncodeString("p"); err != nil {
		return err
	}
	if err := enc.EncodeInt(order.Price); err != nil {
		return err
	}
	if err := enc.EncodeString("u"); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(order.Units)); err != nil {
		return err
	}
	if err := enc.EncodeString("r"); err != nil {
		return err
	}
	if err := enc.EncodeString(order.Ref); err != nil {
		return err
	}
	if order.Target != "" {
		if err := enc.EncodeString("t"); err != nil {
			return err
		}
		if err := enc.EncodeString(order.Target); err != nil {
			return err
		}
	}
	return nil
}

func encodeCancelWire(enc *msgpack.Encoder, cancel CancelWire) error {
	mapLen := 2
	if cancel.Ref != "" {
		mapLen++
	}
	if err := enc.EncodeMapLen(mapLen); err != nil {
		return err
	}
	if err := enc.EncodeString("m"); err != nil {
		return err
	}
	if err := enc.EncodeInt(int64(cancel.Market)); err != nil {
		return err
	}
	if err := enc.EncodeString("o"); err != nil {
		return err
	}
	if err := enc.EncodeInt(cancel.OrderID); err != nil {
		return err
	}
	if cancel.Ref != "" {
		if err := enc.EncodeString("r"); err != nil {
			return err
		}
		if err := enc.EncodeString(cancel.Ref); err != nil {
			return err
		}
	}
	return nil
}
