package matching

import "github.com/shopspring/decimal"

// Fill is an immutable record of one match. The price is always the
// resting maker's price: price improvement accrues to the taker.
type Fill struct {
	MakerOrderID  uint64          `json:"maker_order_id"`
	MakerMemberID uint64          `json:"maker_member_id"`
	TakerOrderID  uint64          `json:"taker_order_id"`
	Price         decimal.Decimal `json:"price"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// MatchResult is the outcome of one matching pass. MakerRemaining maps
// every supplied maker to its unfilled quantity after the pass.
type MatchResult struct {
	Fills          []Fill
	TakerRemaining decimal.Decimal
	MakerRemaining map[uint64]decimal.Decimal
}

// MatchLimit walks makers in the supplied order and computes fills for a
// limit taker. Makers must arrive in price-time priority with crossing
// already decided by the caller; a non-crossing maker stops the walk.
//
// The matcher mutates nothing: it is a pure function of its inputs, safe
// to call from any number of goroutines.
func MatchLimit(taker *Order, makers []*Order) MatchResult {
	return match(taker, makers, true)
}

// MatchMarket computes fills for a market taker. Every supplied maker is
// eligible by definition; any taker remainder after the walk must be
// canceled by the caller, never re-queued.
func MatchMarket(taker *Order, makers []*Order) MatchResult {
	return match(taker, makers, false)
}

func match(taker *Order, makers []*Order, limit bool) MatchResult {
	result := MatchResult{
		TakerRemaining: taker.UnfilledQuantity(),
		MakerRemaining: make(map[uint64]decimal.Decimal, len(makers)),
	}

	for _, maker := range makers {
		result.MakerRemaining[maker.ID] = maker.UnfilledQuantity()
	}

	for _, maker := range makers {
		if result.TakerRemaining.IsZero() {
			break
		}

		if limit && !taker.IsCrossed(maker.Price) {
			break
		}

		quantity := decimal.Min(result.TakerRemaining, maker.VisibleQuantity())
		if !quantity.IsPositive() {
			continue
		}

		result.Fills = append(result.Fills, Fill{
			MakerOrderID:  maker.ID,
			MakerMemberID: maker.MemberID,
			TakerOrderID:  taker.ID,
			Price:         maker.Price,
			Quantity:      quantity,
		})

		result.TakerRemaining = result.TakerRemaining.Sub(quantity)
		result.MakerRemaining[maker.ID] = result.MakerRemaining[maker.ID].Sub(quantity)
	}

	return result
}
