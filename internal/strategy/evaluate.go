package strategy

import "fm-arb-bot/internal/market"

// DeriveRole maps the private-market signal order to the agent's role: a
// standing BUY signal means the counterparty wants to buy from the agent,
// so the agent acts as BUYER in the public market, and symmetrically for
// SELL. No signal, no role.
func DeriveRole(signal *market.Order) (Role, bool) {
	if signal == nil {
		return "", false
	}
	if signal.Side == market.SideBuy {
		return RoleBuyer, true
	}
	return RoleSeller, true
}

// Margin is the per-unit profit in price ticks for acting now: the gap
// between the private signal price and the opposing public best. Exact
// integer arithmetic, no rounding. Undefined when the opposing public best
// is absent.
func Margin(role Role, signalPrice int64, book market.Book) (int64, bool) {
	switch role {
	case RoleBuyer:
		if book.BestPublicSell == nil {
			return 0, false
		}
		return signalPrice - book.BestPublicSell.Price, true
	case RoleSeller:
		if book.BestPublicBuy == nil {
			return 0, false
		}
		return book.BestPublicBuy.Price - signalPrice, true
	}
	return 0, false
}
