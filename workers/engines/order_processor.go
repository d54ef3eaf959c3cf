package engines

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/ledger"
	"github.com/zentex/zentex/models"
	"github.com/zentex/zentex/mq_client"
	"github.com/zentex/zentex/pkg/fixedpoint"
	"github.com/zentex/zentex/types"
)

var ErrMarketDisabled = errors.New("market.market.disabled")

// OrderProcessorWorker accepts and cancels persisted orders. Acceptance
// validates the order against its market, captures the member's fee
// rates, reserves funds through a ledger hold and only then hands the
// order to matching; any failure marks the row rejected without moving
// funds.
type OrderProcessorWorker struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	publisher Publisher
}

func NewOrderProcessorWorker() *OrderProcessorWorker {
	return &OrderProcessorWorker{
		db:        config.DataBase,
		ledger:    ledger.New(config.DataBase),
		publisher: mq_client.Broker{},
	}
}

func (w *OrderProcessorWorker) Process(payload []byte) error {
	var message types.OrderProcessorPayloadMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return err
	}

	switch message.Action {
	case types.ActionSubmit:
		return w.SubmitOrder(message.ID)
	case types.ActionCancel:
		return w.CancelOrder(message.ID)
	default:
		config.Logger.Errorf("[order_processor] unknown action: %s", message.Action)
		return nil
	}
}

// SubmitOrder runs acceptance for a pending order. The funds check and
// the reservation happen atomically inside one transaction; a rejected
// order never holds funds.
func (w *OrderProcessorWorker) SubmitOrder(id uint64) error {
	order := &models.Order{}

	err := w.db.Transaction(func(tx *gorm.DB) error {
		result := withRowLock(tx).Where("id = ?", id).First(order)
		if result.Error != nil {
			return fmt.Errorf("can't find order by id: %d", id)
		}

		if order.Status != models.StatusPending {
			return nil
		}

		market, err := models.GetMarketBySymbol(tx, order.MarketID)
		if err != nil {
			return err
		}
		if !market.Enabled() {
			return ErrMarketDisabled
		}

		if err := order.Validate(market); err != nil {
			return err
		}

		member := order.Member(tx)
		fee := models.TradingFeeFor(tx, member.Group, market.Symbol)
		order.MakerFeeBps = fee.MakerBps
		order.TakerFeeBps = fee.TakerBps

		locked, err := order.ComputeLocked(tx, market)
		if err != nil {
			return err
		}

		amount, err := fixedpoint.FromDecimal(locked)
		if err != nil {
			return err
		}

		lg := w.ledger.WithTx(tx)

		currency := order.LockCurrency(market)
		account, err := lg.EnsureAccount(order.MemberID, currency)
		if err != nil {
			return err
		}

		hold, err := lg.CreateHold(account.ID, currency, amount)
		if err != nil {
			return err
		}

		order.HoldID = hold.ID
		order.Locked = locked
		order.OriginLocked = locked
		order.RemainingQuantity = order.Quantity
		if err := order.TransitionTo(models.StatusOpen); err != nil {
			return err
		}

		return tx.Save(order).Error
	})

	if err != nil {
		w.rejectOrder(id)
		config.Logger.Errorf("[order_processor] submit order %d rejected: %v", id, err)
		return nil
	}

	if order.Status != models.StatusOpen {
		return nil
	}

	w.publishOrderEvent(order)

	payload, err := json.Marshal(types.MatchingPayloadMessage{
		Action: types.ActionSubmit,
		Order:  order.ToMatchingAttributes(),
	})
	if err != nil {
		return err
	}

	return w.publisher.Enqueue("matching", payload)
}

// CancelOrder releases the order's remaining hold, marks the row
// canceled and tells matching to drop it from the book. Canceling an
// order that is already terminal is a no-op.
func (w *OrderProcessorWorker) CancelOrder(id uint64) error {
	order := &models.Order{}
	canceled := false

	err := w.db.Transaction(func(tx *gorm.DB) error {
		result := withRowLock(tx).Where("id = ?", id).First(order)
		if result.Error != nil {
			return fmt.Errorf("can't find order by id: %d", id)
		}

		if !order.CanCancel() {
			return nil
		}

		if _, err := w.ledger.WithTx(tx).ReleaseHold(order.HoldID); err != nil {
			return err
		}

		order.Locked = decimal.Zero
		if err := order.TransitionTo(models.StatusCanceled); err != nil {
			return err
		}
		canceled = true

		return tx.Save(order).Error
	})
	if err != nil {
		return err
	}

	if !canceled {
		return nil
	}

	w.publishOrderEvent(order)

	payload, err := json.Marshal(types.MatchingPayloadMessage{
		Action: types.ActionCancel,
		Order:  order.ToMatchingAttributes(),
	})
	if err != nil {
		return err
	}

	return w.publisher.Enqueue("matching", payload)
}

func (w *OrderProcessorWorker) rejectOrder(id uint64) {
	order := &models.Order{}

	if result := w.db.Where("id = ?", id).First(order); result.Error != nil {
		return
	}

	if order.Status != models.StatusPending {
		return
	}

	order.Status = models.StatusRejected
	w.db.Save(order)

	w.publishOrderEvent(order)
}

func (w *OrderProcessorWorker) publishOrderEvent(order *models.Order) {
	member := order.Member(w.db)

	payload, err := json.Marshal(order)
	if err != nil {
		return
	}

	if err := w.publisher.EnqueueEvent("private", member.UID, "order", payload); err != nil {
		config.Logger.Errorf("[order_processor] publish order event: %v", err)
	}
}
