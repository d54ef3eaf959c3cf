package engines

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/matching"
	"github.com/zentex/zentex/models"
	"github.com/zentex/zentex/mq_client"
	"github.com/zentex/zentex/pkg/fixedpoint"
	"github.com/zentex/zentex/types"
)

// MatchingWorker keeps one in-memory engine per enabled market, feeds
// accepted orders into the books and fans the resulting fills out to
// settlement. Forced cancellations (self-trade prevention, market-order
// remainders) go back through the order processor so the hold is
// released there.
type MatchingWorker struct {
	db        *gorm.DB
	publisher Publisher
	Engines   map[string]*matching.Engine
}

func NewMatchingWorker() *MatchingWorker {
	worker := &MatchingWorker{
		db:        config.DataBase,
		publisher: mq_client.Broker{},
		Engines:   make(map[string]*matching.Engine),
	}

	worker.Reload("all")

	return worker
}

func (w *MatchingWorker) Process(payload []byte) error {
	var message types.MatchingPayloadMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return err
	}

	switch message.Action {
	case types.ActionSubmit:
		return w.SubmitOrder(message.Order)
	case types.ActionCancel:
		return w.CancelOrder(message.Order)
	case types.ActionReload:
		w.Reload(message.Market)
		return nil
	default:
		config.Logger.Errorf("[matching] unknown action: %s", message.Action)
		return nil
	}
}

func (w *MatchingWorker) SubmitOrder(order *matching.Order) error {
	if order == nil {
		return fmt.Errorf("submit payload carries no order")
	}

	engine := w.GetEngineByMarket(order.Symbol)
	if engine == nil {
		return fmt.Errorf("no engine for market %s", order.Symbol)
	}

	outcome := engine.Submit(order)

	if err := w.dispatchOutcome(order, outcome); err != nil {
		return err
	}

	return w.publishDepth(order.Symbol, engine)
}

func (w *MatchingWorker) CancelOrder(order *matching.Order) error {
	if order == nil {
		return fmt.Errorf("cancel payload carries no order")
	}

	engine := w.GetEngineByMarket(order.Symbol)
	if engine == nil {
		return fmt.Errorf("no engine for market %s", order.Symbol)
	}

	engine.Cancel(order.ID)

	return w.publishDepth(order.Symbol, engine)
}

func (w *MatchingWorker) dispatchOutcome(taker *matching.Order, outcome *matching.MatchOutcome) error {
	for _, fill := range outcome.Fills {
		trade := matching.Trade{
			Symbol:       taker.Symbol,
			Price:        fill.Price,
			Quantity:     fill.Quantity,
			Total:        fill.Price.Mul(fill.Quantity).Round(fixedpoint.Scale),
			MakerOrderID: fill.MakerOrderID,
			TakerOrderID: fill.TakerOrderID,
			MakerID:      fill.MakerMemberID,
			TakerID:      taker.MemberID,
			CreatedAt:    time.Now(),
		}

		payload, err := json.Marshal(types.TradeExecutorPayloadMessage{
			Market: taker.Symbol,
			Trade:  trade,
		})
		if err != nil {
			return err
		}

		if err := w.publisher.Enqueue("trade_executor", payload); err != nil {
			return err
		}
	}

	for _, id := range outcome.CanceledMakerIDs {
		if err := w.enqueueCancel(id); err != nil {
			return err
		}
	}

	iocRemainder := taker.Type == matching.TypeMarket && outcome.TakerRemaining.IsPositive()
	if outcome.TakerCanceled || outcome.Rejected || iocRemainder {
		return w.enqueueCancel(taker.ID)
	}

	return nil
}

func (w *MatchingWorker) publishDepth(market string, engine *matching.Engine) error {
	payload, err := json.Marshal(DepthCachePayloadMessage{
		Market: market,
		Depth: types.Depth{
			Asks: engine.OrderBook.DepthLevels(matching.SideSell, 0),
			Bids: engine.OrderBook.DepthLevels(matching.SideBuy, 0),
		},
	})
	if err != nil {
		return err
	}

	return w.publisher.Enqueue("depth_cache", payload)
}

func (w *MatchingWorker) enqueueCancel(id uint64) error {
	payload, err := json.Marshal(types.OrderProcessorPayloadMessage{
		Action: types.ActionCancel,
		ID:     id,
	})
	if err != nil {
		return err
	}

	return w.publisher.Enqueue("order_processor", payload)
}

func (w *MatchingWorker) GetEngineByMarket(market string) *matching.Engine {
	engine, found := w.Engines[market]
	if found {
		return engine
	}

	return nil
}

func (w *MatchingWorker) Reload(market string) {
	if market == "all" {
		for _, m := range models.GetEnabledMarkets(w.db) {
			w.InitializeEngine(m)
		}

		config.Logger.Info("[matching] all engines reloaded")
		return
	}

	m, err := models.GetMarketBySymbol(w.db, market)
	if err != nil {
		config.Logger.Errorf("[matching] reload %s: %v", market, err)
		return
	}

	w.InitializeEngine(m)
}

// InitializeEngine builds a fresh book for the market and replays its
// live limit orders in id order, restoring time priority.
func (w *MatchingWorker) InitializeEngine(market *models.Market) {
	price := market.MarketPrice
	if last, ok := models.LastPrice(w.db, market.Symbol); ok {
		price = last
	}

	w.Engines[market.Symbol] = matching.NewEngine(market.Symbol, price, market.Stp)
	w.LoadOrders(market.Symbol)

	config.Logger.Infof("[matching] %s engine reloaded", market.Symbol)
}

// LoadOrders replays through SubmitOrder rather than straight into the
// book: a book left crossed by a crash must dispatch its fills and
// forced cancels on replay, not swallow them.
func (w *MatchingWorker) LoadOrders(market string) {
	var orders []models.Order

	w.db.
		Where("market_id = ? AND ord_type = ? AND status IN ?",
			market, models.TypeLimit, []models.OrderStatus{models.StatusOpen, models.StatusPartiallyFilled}).
		Order("id asc").
		Find(&orders)

	for i := range orders {
		if err := w.SubmitOrder(orders[i].ToMatchingAttributes()); err != nil {
			config.Logger.Errorf("[matching] replay order %d: %v", orders[i].ID, err)
		}
	}
}
