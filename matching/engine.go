package matching

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Engine wraps one market's order book behind a submit/cancel mutex so
// a matching pass always observes consistent maker quantities.
type Engine struct {
	matchingMutex sync.Mutex
	Market        string
	OrderBook     *OrderBook
	Initialized   bool
}

func NewEngine(market string, price decimal.Decimal, stp StpPolicy) *Engine {
	return &Engine{
		Market:    market,
		OrderBook: NewOrderBook(market, price, stp),
	}
}

func (e *Engine) Submit(o *Order) *MatchOutcome {
	e.matchingMutex.Lock()
	defer e.matchingMutex.Unlock()

	return e.OrderBook.Insert(o)
}

func (e *Engine) Cancel(id uint64) *Order {
	e.matchingMutex.Lock()
	defer e.matchingMutex.Unlock()

	return e.OrderBook.Cancel(id)
}
