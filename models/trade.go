package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trade is one executed fill. Price is the maker's price, Amount the
// base quantity and Total the quote value actually settled. EntryID
// points at the journal entry that moved the funds.
type Trade struct {
	ID           uint64          `json:"id" gorm:"primaryKey"`
	MarketID     string          `json:"market_id"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(38,18)" validate:"PriceValidator"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(38,18)" validate:"AmountValidator"`
	Total        decimal.Decimal `json:"total" gorm:"type:numeric(38,18)" validate:"TotalValidator"`
	MakerOrderID uint64          `json:"maker_order_id"`
	TakerOrderID uint64          `json:"taker_order_id"`
	MakerID      uint64          `json:"maker_id"`
	TakerID      uint64          `json:"taker_id"`
	TakerSide    OrderSide       `json:"taker_side"`
	EntryID      uint64          `json:"entry_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (t Trade) PriceValidator(price decimal.Decimal) bool {
	return price.IsPositive()
}

func (t Trade) AmountValidator(amount decimal.Decimal) bool {
	return amount.IsPositive()
}

func (t Trade) TotalValidator(total decimal.Decimal) bool {
	return total.IsPositive()
}

func (t *Trade) Market(db *gorm.DB) *Market {
	market := &Market{}

	db.First(market, "symbol = ?", t.MarketID)

	return market
}

func (t *Trade) MakerOrder(db *gorm.DB) *Order {
	order := &Order{}

	db.First(order, "id = ?", t.MakerOrderID)

	return order
}

func (t *Trade) TakerOrder(db *gorm.DB) *Order {
	order := &Order{}

	db.First(order, "id = ?", t.TakerOrderID)

	return order
}

// FeeBpsFor returns the basis-points rate the given order pays on this
// trade: its captured maker rate when it rested, taker rate otherwise.
func (t *Trade) FeeBpsFor(order *Order) int64 {
	if t.MakerOrderID == order.ID {
		return order.MakerFeeBps
	}

	return order.TakerFeeBps
}

// LastPrice returns the most recent trade price of a market, or false
// when the market has never traded.
func LastPrice(db *gorm.DB, marketID string) (decimal.Decimal, bool) {
	trade := &Trade{}

	result := db.Where("market_id = ?", marketID).Order("id desc").First(trade)
	if result.Error != nil {
		return decimal.Zero, false
	}

	return trade.Price, true
}
