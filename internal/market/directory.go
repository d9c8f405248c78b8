package market

import "fmt"

// Directory resolves the markets the session trades. It is built once at
// startup from configuration and never mutated afterwards.
type Directory struct {
	markets map[int]Market
}

func NewDirectory(markets []Market) (*Directory, error) {
	d := &Directory{markets: make(map[int]Market, len(markets))}
	for _, m := range markets {
		if m.ID <= 0 {
			return nil, fmt.Errorf("market %q has invalid id %d", m.Name, m.ID)
		}
		if _, exists := d.markets[m.ID]; exists {
			return nil, fmt.Errorf("duplicate market id %d", m.ID)
		}
		d.markets[m.ID] = m
	}
	return d, nil
}

func (d *Directory) Resolve(id int) (Market, bool) {
	m, ok := d.markets[id]
	return m, ok
}

// Pair returns the public and private legs of the strategy. Missing
// markets or wrong visibility flags are configuration errors and fatal at
// startup.
func (d *Directory) Pair(publicID, privateID int) (Market, Market, error) {
	public, ok := d.markets[publicID]
	if !ok {
		return Market{}, Market{}, fmt.Errorf("public market %d not found", publicID)
	}
	if public.Private {
		return Market{}, Market{}, fmt.Errorf("market %d (%s) is private, expected public", publicID, public.Name)
	}
	private, ok := d.markets[privateID]
	if !ok {
		return Market{}, Market{}, fmt.Errorf("private market %d not found", privateID)
	}
	if !private.Private {
		return Market{}, Market{}, fmt.Errorf("market %d (%s) is public, expected private", privateID, private.Name)
	}
	return public, private, nil
}
