package matching

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the fill payload the engine hands to settlement: two opposed
// matched orders, quantity and the maker's price.
type Trade struct {
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
	MakerOrderID uint64          `json:"maker_order_id"`
	TakerOrderID uint64          `json:"taker_order_id"`
	MakerID      uint64          `json:"maker_id"`
	TakerID      uint64          `json:"taker_id"`
	CreatedAt    time.Time       `json:"created_at"`
}
