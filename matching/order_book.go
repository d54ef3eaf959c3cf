package matching

import (
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/shopspring/decimal"

	"github.com/zentex/zentex/config"
)

// OrderBook holds the resting limit orders of one market in two
// price-time ordered trees and drives the pure matcher against them.
// Candidate makers are collected best-price-first with the oldest order
// winning ties; only the visible slice of an iceberg is exposed.
type OrderBook struct {
	sync.Mutex

	Symbol      string
	MarketPrice decimal.Decimal

	Bids *rbt.Tree
	Asks *rbt.Tree

	orders map[uint64]*Order
	stp    StpPolicy
	seq    uint64
}

// Comparator orders keys so that the best order of a side sits at the
// tree's right edge: highest bid, lowest ask, oldest first on equal
// prices.
func Comparator(a, b interface{}) (result int) {
	this := a.(*OrderKey)
	that := b.(*OrderKey)

	if this.Side != that.Side {
		config.Logger.Errorf("[orderbook] compare order with different sides")
	}

	if this.ID == that.ID {
		return
	}

	switch {
	case this.Side == SideSell && this.Price.LessThan(that.Price):
		result = 1

	case this.Side == SideSell && this.Price.GreaterThan(that.Price):
		result = -1

	case this.Side == SideBuy && this.Price.LessThan(that.Price):
		result = -1

	case this.Side == SideBuy && this.Price.GreaterThan(that.Price):
		result = 1

	default:
		if this.Seq < that.Seq {
			result = 1
		} else {
			result = -1
		}
	}

	return
}

func NewOrderBook(symbol string, marketPrice decimal.Decimal, stp StpPolicy) *OrderBook {
	if !stp.Valid() {
		stp = StpCancelNewest
	}

	return &OrderBook{
		Symbol:      symbol,
		MarketPrice: marketPrice,
		Bids:        rbt.NewWith(Comparator),
		Asks:        rbt.NewWith(Comparator),
		orders:      make(map[uint64]*Order, 1024),
		stp:         stp,
	}
}

// MatchOutcome reports everything one insert did: the fills produced,
// what is left of the taker, whether the remainder was rested, and any
// cancellations forced by the self-trade-prevention policy.
type MatchOutcome struct {
	Fills            []Fill
	TakerRemaining   decimal.Decimal
	Rested           bool
	TakerCanceled    bool
	Rejected         bool
	CanceledMakerIDs []uint64
}

// Insert matches the taker against the book and rests any limit
// remainder. A market order's remainder is never rested: it comes back in
// TakerRemaining and the caller must cancel it (immediate-or-cancel).
func (ob *OrderBook) Insert(taker *Order) *MatchOutcome {
	ob.Lock()
	defer ob.Unlock()

	outcome := &MatchOutcome{}

	if _, exists := ob.orders[taker.ID]; exists {
		outcome.TakerRemaining = taker.UnfilledQuantity()
		return outcome
	}

	config.Logger.Debugf("[orderbook] insert order %d - %s * %s, side %s", taker.ID, taker.Price, taker.Quantity, taker.Side)

	if taker.IsIceberg() && !taker.DisplayRemaining.IsPositive() {
		taker.DisplayRemaining = decimal.Min(taker.DisplayQuantity, taker.UnfilledQuantity())
	}

	for !taker.Filled() {
		makers, own := ob.crossingMakers(taker)

		if len(makers) > 0 {
			var result MatchResult
			if taker.Type == TypeMarket {
				result = MatchMarket(taker, makers)
			} else {
				result = MatchLimit(taker, makers)
			}

			ob.applyFills(taker, result.Fills)
			outcome.Fills = append(outcome.Fills, result.Fills...)
		}

		if taker.Filled() {
			break
		}

		if own != nil {
			switch ob.stp {
			case StpReject:
				outcome.Rejected = true
			case StpCancelBoth:
				ob.remove(own)
				outcome.CanceledMakerIDs = append(outcome.CanceledMakerIDs, own.ID)
				outcome.TakerCanceled = true
			default:
				outcome.TakerCanceled = true
			}
			break
		}

		if len(makers) == 0 {
			break
		}
		// Fills happened; an iceberg replenish may have exposed more
		// quantity, so walk the book again.
	}

	outcome.TakerRemaining = taker.UnfilledQuantity()

	if !taker.Filled() && !outcome.TakerCanceled && !outcome.Rejected && taker.Type == TypeLimit {
		ob.add(taker)
		outcome.Rested = true
	}

	return outcome
}

// crossingMakers collects eligible makers best-first. The walk stops at
// the first price the taker no longer crosses, or at the taker's own
// resting order: the STP policy decides what happens there, and skipping
// past it to a worse price would break price-time fairness.
func (ob *OrderBook) crossingMakers(taker *Order) (makers []*Order, own *Order) {
	tree := ob.Asks
	if taker.Side == SideSell {
		tree = ob.Bids
	}

	it := tree.Iterator()
	it.End()
	for it.Prev() {
		maker := it.Value().(*Order)

		if !taker.IsCrossed(maker.Price) {
			break
		}

		if maker.MemberID == taker.MemberID {
			own = maker
			break
		}

		if maker.VisibleQuantity().IsPositive() {
			makers = append(makers, maker)
		}
	}

	return makers, own
}

func (ob *OrderBook) applyFills(taker *Order, fills []Fill) {
	for _, fill := range fills {
		maker := ob.orders[fill.MakerOrderID]
		if maker == nil {
			continue
		}

		replenished := maker.Fill(fill.Quantity)
		taker.Fill(fill.Quantity)
		ob.MarketPrice = fill.Price

		config.Logger.Debugf("[orderbook] fill %s * %s, maker %d, taker %d", fill.Price, fill.Quantity, fill.MakerOrderID, fill.TakerOrderID)

		tree := ob.sideTree(maker.Side)
		switch {
		case maker.Filled():
			tree.Remove(maker.Key())
			delete(ob.orders, maker.ID)

		case replenished:
			// A fresh iceberg slice goes to the back of its price level.
			tree.Remove(maker.Key())
			maker.Seq = ob.nextSeq()
			tree.Put(maker.Key(), maker)
		}
	}
}

// Cancel removes a resting order and returns it, or nil when the order
// is not in the book.
func (ob *OrderBook) Cancel(id uint64) *Order {
	ob.Lock()
	defer ob.Unlock()

	order, found := ob.orders[id]
	if !found {
		return nil
	}

	ob.remove(order)

	return order
}

// Size returns the number of resting orders.
func (ob *OrderBook) Size() int {
	ob.Lock()
	defer ob.Unlock()

	return len(ob.orders)
}

// DepthLevels aggregates visible resting quantity per price, best price
// first, up to limit levels (0 means all).
func (ob *OrderBook) DepthLevels(side OrderSide, limit int) [][]decimal.Decimal {
	ob.Lock()
	defer ob.Unlock()

	tree := ob.sideTree(side)
	levels := make([][]decimal.Decimal, 0)

	it := tree.Iterator()
	it.End()
	for it.Prev() {
		order := it.Value().(*Order)
		visible := order.VisibleQuantity()
		if !visible.IsPositive() {
			continue
		}

		if n := len(levels); n > 0 && levels[n-1][0].Equal(order.Price) {
			levels[n-1][1] = levels[n-1][1].Add(visible)
			continue
		}

		if limit > 0 && len(levels) == limit {
			break
		}
		levels = append(levels, []decimal.Decimal{order.Price, visible})
	}

	return levels
}

func (ob *OrderBook) sideTree(side OrderSide) *rbt.Tree {
	if side == SideSell {
		return ob.Asks
	}

	return ob.Bids
}

func (ob *OrderBook) add(order *Order) {
	order.Seq = ob.nextSeq()
	ob.sideTree(order.Side).Put(order.Key(), order)
	ob.orders[order.ID] = order
}

func (ob *OrderBook) remove(order *Order) {
	ob.sideTree(order.Side).Remove(order.Key())
	delete(ob.orders, order.ID)
}

func (ob *OrderBook) nextSeq() uint64 {
	ob.seq++
	return ob.seq
}
