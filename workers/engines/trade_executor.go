package engines

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/ledger"
	"github.com/zentex/zentex/matching"
	"github.com/zentex/zentex/models"
	"github.com/zentex/zentex/mq_client"
	"github.com/zentex/zentex/pkg/fixedpoint"
	"github.com/zentex/zentex/types"
)

// TradeExecutorWorker settles fills: it consumes the buyer's and
// seller's holds, posts one balanced journal entry moving base, quote
// and fees, strikes both orders and records the trade. Everything
// happens in a single transaction with both order rows locked, so a
// fill either settles completely or not at all.
type TradeExecutorWorker struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	publisher Publisher
}

type tradeExecutor struct {
	worker     *TradeExecutorWorker
	payload    *matching.Trade
	makerOrder *models.Order
	takerOrder *models.Order
}

func NewTradeExecutorWorker() *TradeExecutorWorker {
	return &TradeExecutorWorker{
		db:        config.DataBase,
		ledger:    ledger.New(config.DataBase),
		publisher: mq_client.Broker{},
	}
}

func (w *TradeExecutorWorker) Process(payload []byte) error {
	var message types.TradeExecutorPayloadMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return err
	}

	executor := &tradeExecutor{
		worker:     w,
		payload:    &message.Trade,
		makerOrder: &models.Order{},
		takerOrder: &models.Order{},
	}

	trade, err := executor.createTradeAndStrikeOrders()
	if err != nil {
		config.Logger.Errorf("[trade_executor] %s maker %d taker %d: %v",
			message.Trade.Symbol, message.Trade.MakerOrderID, message.Trade.TakerOrderID, err)
		return err
	}

	executor.publishTrade(trade)

	return nil
}

func (t *tradeExecutor) validateTrade() error {
	askOrder, bidOrder := t.makerOrder, t.takerOrder
	if t.makerOrder.Side == models.SideBuy {
		askOrder, bidOrder = t.takerOrder, t.makerOrder
	}

	if askOrder.IsLimitOrder() && askOrder.Price.Decimal.GreaterThan(t.payload.Price) {
		return fmt.Errorf("ask price exceeds strike price")
	}
	if bidOrder.IsLimitOrder() && bidOrder.Price.Decimal.LessThan(t.payload.Price) {
		return fmt.Errorf("bid price is less than strike price")
	}
	if !t.makerOrder.CanCancel() {
		return fmt.Errorf("maker order is no longer live (%s)", t.makerOrder.Status)
	}
	if !t.takerOrder.CanCancel() {
		return fmt.Errorf("taker order is no longer live (%s)", t.takerOrder.Status)
	}
	if !t.payload.Quantity.IsPositive() {
		return fmt.Errorf("non-positive quantity")
	}
	if decimal.Min(t.makerOrder.RemainingQuantity, t.takerOrder.RemainingQuantity).LessThan(t.payload.Quantity) {
		return fmt.Errorf("quantity exceeds remaining order quantity")
	}

	return nil
}

func (t *tradeExecutor) createTradeAndStrikeOrders() (*models.Trade, error) {
	var trade *models.Trade

	err := t.worker.db.Transaction(func(tx *gorm.DB) error {
		market, err := models.GetMarketBySymbol(tx, t.payload.Symbol)
		if err != nil {
			return err
		}

		if err := withRowLock(tx).Where("id = ?", t.payload.MakerOrderID).First(t.makerOrder).Error; err != nil {
			return fmt.Errorf("maker order %d: %w", t.payload.MakerOrderID, err)
		}
		if err := withRowLock(tx).Where("id = ?", t.payload.TakerOrderID).First(t.takerOrder).Error; err != nil {
			return fmt.Errorf("taker order %d: %w", t.payload.TakerOrderID, err)
		}

		if err := t.validateTrade(); err != nil {
			return err
		}

		buyOrder, sellOrder := t.makerOrder, t.takerOrder
		if t.makerOrder.Side == models.SideSell {
			buyOrder, sellOrder = t.takerOrder, t.makerOrder
		}

		price, err := fixedpoint.FromDecimal(t.payload.Price)
		if err != nil {
			return err
		}
		quantity, err := fixedpoint.FromDecimal(t.payload.Quantity)
		if err != nil {
			return err
		}

		quote := price.MulRound(quantity)
		buyerFee := fixedpoint.BpsFeeCeil(quote, t.feeBps(buyOrder))
		sellerFee := fixedpoint.BpsFeeCeil(quote, t.feeBps(sellOrder))

		buyerOutcome := quote.Add(buyerFee)
		sellerIncome, err := quote.Sub(sellerFee)
		if err != nil {
			return err
		}

		lg := t.worker.ledger.WithTx(tx)

		if err := lg.ConsumeHold(buyOrder.HoldID, buyerOutcome); err != nil {
			return fmt.Errorf("consume buyer hold: %w", err)
		}
		if err := lg.ConsumeHold(sellOrder.HoldID, quantity); err != nil {
			return fmt.Errorf("consume seller hold: %w", err)
		}

		trade = &models.Trade{
			MarketID:     t.payload.Symbol,
			Price:        price.Decimal(),
			Amount:       quantity.Decimal(),
			Total:        quote.Decimal(),
			MakerOrderID: t.payload.MakerOrderID,
			TakerOrderID: t.payload.TakerOrderID,
			MakerID:      t.payload.MakerID,
			TakerID:      t.payload.TakerID,
			TakerSide:    t.takerOrder.Side,
		}
		if err := tx.Create(trade).Error; err != nil {
			return err
		}

		entry, err := t.postSettlementEntry(lg, market, trade, buyOrder, sellOrder, quantity, quote, buyerFee, sellerFee)
		if err != nil {
			return err
		}

		trade.EntryID = entry.ID
		if err := tx.Save(trade).Error; err != nil {
			return err
		}

		if err := t.strike(tx, lg, buyOrder, quantity, buyerOutcome, quantity); err != nil {
			return err
		}
		if err := t.strike(tx, lg, sellOrder, quantity, quantity, sellerIncome); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return trade, nil
}

// postSettlementEntry writes the double-entry record of one fill: base
// moves from seller to buyer, quote moves from buyer to seller, and
// both fees land on the platform's fee account. Each currency nets to
// zero.
func (t *tradeExecutor) postSettlementEntry(
	lg *ledger.Ledger,
	market *models.Market,
	trade *models.Trade,
	buyOrder, sellOrder *models.Order,
	quantity, quote, buyerFee, sellerFee fixedpoint.Amount,
) (*ledger.JournalEntry, error) {
	buyerBase, err := lg.EnsureAccount(buyOrder.MemberID, market.BaseUnit)
	if err != nil {
		return nil, err
	}
	buyerQuote, err := lg.EnsureAccount(buyOrder.MemberID, market.QuoteUnit)
	if err != nil {
		return nil, err
	}
	sellerBase, err := lg.EnsureAccount(sellOrder.MemberID, market.BaseUnit)
	if err != nil {
		return nil, err
	}
	sellerQuote, err := lg.EnsureAccount(sellOrder.MemberID, market.QuoteUnit)
	if err != nil {
		return nil, err
	}

	buyerOutcome := quote.Add(buyerFee)
	sellerIncome, err := quote.Sub(sellerFee)
	if err != nil {
		return nil, err
	}

	lines := []ledger.LineInput{
		{AccountID: sellerBase.ID, Currency: market.BaseUnit, Amount: quantity.Neg()},
		{AccountID: buyerBase.ID, Currency: market.BaseUnit, Amount: quantity},
		{AccountID: buyerQuote.ID, Currency: market.QuoteUnit, Amount: buyerOutcome.Neg()},
		{AccountID: sellerQuote.ID, Currency: market.QuoteUnit, Amount: sellerIncome},
	}

	fees := buyerFee.Add(sellerFee)
	if fees.IsPositive() {
		feeAccount, err := lg.EnsureAccount(ledger.PlatformMemberID, market.QuoteUnit)
		if err != nil {
			return nil, err
		}

		lines = append(lines, ledger.LineInput{
			AccountID: feeAccount.ID,
			Currency:  market.QuoteUnit,
			Amount:    fees,
		})
	}

	return lg.PostEntry("trade", fmt.Sprintf("trade:%d", trade.ID), lines)
}

// strike applies one fill to an order: remaining quantity and locked
// funds shrink, received funds grow and the status follows. A fully
// filled order releases whatever reservation was never consumed; a
// market order whose reservation ran dry is canceled.
func (t *tradeExecutor) strike(tx *gorm.DB, lg *ledger.Ledger, order *models.Order, quantity, outcome, income fixedpoint.Amount) error {
	remaining, err := fixedpoint.FromDecimal(order.RemainingQuantity)
	if err != nil {
		return err
	}
	locked, err := fixedpoint.FromDecimal(order.Locked)
	if err != nil {
		return err
	}

	newRemaining, err := remaining.Sub(quantity)
	if err != nil {
		return err
	}
	newLocked, err := locked.Sub(outcome)
	if err != nil {
		return fmt.Errorf("order %d locked %s cannot cover %s: %w", order.ID, locked, outcome, err)
	}

	order.RemainingQuantity = newRemaining.Decimal()
	order.Locked = newLocked.Decimal()
	order.FundsReceived = order.FundsReceived.Add(income.Decimal())
	order.TradesCount++

	status := models.StatusForRemaining(order.RemainingQuantity, order.Quantity)
	if err := order.TransitionTo(status); err != nil {
		return err
	}

	if order.Status == models.StatusFilled {
		if _, err := lg.ReleaseHold(order.HoldID); err != nil {
			return err
		}
		order.Locked = decimal.Zero
	} else if order.IsMarketOrder() && order.Locked.IsZero() {
		if _, err := lg.ReleaseHold(order.HoldID); err != nil {
			return err
		}
		if err := order.TransitionTo(models.StatusCanceled); err != nil {
			return err
		}
	}

	return tx.Save(order).Error
}

func (t *tradeExecutor) feeBps(order *models.Order) int64 {
	if order.ID == t.payload.MakerOrderID {
		return order.MakerFeeBps
	}

	return order.TakerFeeBps
}

func (t *tradeExecutor) publishTrade(trade *models.Trade) {
	payload, err := json.Marshal(trade)
	if err != nil {
		return
	}

	if err := t.worker.publisher.EnqueueEvent("public", trade.MarketID, "trades", payload); err != nil {
		config.Logger.Errorf("[trade_executor] publish trade event: %v", err)
	}

	for _, order := range []*models.Order{t.makerOrder, t.takerOrder} {
		member := order.Member(t.worker.db)

		orderPayload, err := json.Marshal(order)
		if err != nil {
			continue
		}

		if err := t.worker.publisher.EnqueueEvent("private", member.UID, "trade", orderPayload); err != nil {
			config.Logger.Errorf("[trade_executor] publish order update: %v", err)
		}
	}
}
