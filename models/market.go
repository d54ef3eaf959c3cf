package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zentex/zentex/matching"
	"github.com/zentex/zentex/pkg/fixedpoint"
)

const (
	MarketStateEnabled  = "enabled"
	MarketStateDisabled = "disabled"
)

var ErrMarketNotFound = errors.New("market.market.doesnt_exist")

// Market is one trading pair. TickSize constrains limit prices, LotSize
// constrains quantities and MinAmount is the smallest acceptable order.
// All three are positive numeric(38,18) values.
type Market struct {
	ID          uint64             `json:"id" gorm:"primaryKey"`
	Symbol      string             `json:"symbol" gorm:"uniqueIndex"`
	BaseUnit    string             `json:"base_unit"`
	QuoteUnit   string             `json:"quote_unit"`
	TickSize    decimal.Decimal    `json:"tick_size" gorm:"type:numeric(38,18)"`
	LotSize     decimal.Decimal    `json:"lot_size" gorm:"type:numeric(38,18)"`
	MinAmount   decimal.Decimal    `json:"min_amount" gorm:"type:numeric(38,18)"`
	MaxPrice    decimal.Decimal    `json:"max_price" gorm:"type:numeric(38,18)"`
	MinPrice    decimal.Decimal    `json:"min_price" gorm:"type:numeric(38,18)"`
	MarketPrice decimal.Decimal    `json:"market_price" gorm:"type:numeric(38,18)"`
	Stp         matching.StpPolicy `json:"stp" gorm:"default:stp_cancel_newest"`
	State       string             `json:"state" gorm:"default:enabled"`
	Position    int32              `json:"position"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func GetMarketBySymbol(db *gorm.DB, symbol string) (*Market, error) {
	market := &Market{}

	result := db.First(market, "symbol = ?", symbol)
	if result.Error != nil {
		return nil, ErrMarketNotFound
	}

	return market, nil
}

func GetEnabledMarkets(db *gorm.DB) []*Market {
	markets := make([]*Market, 0)

	db.Where("state = ?", MarketStateEnabled).Order("position asc").Find(&markets)

	return markets
}

func (m *Market) Enabled() bool {
	return m.State == MarketStateEnabled
}

// TickAligned reports whether price is an exact multiple of the tick
// size. Misaligned prices are rejected before any funds move.
func (m *Market) TickAligned(price decimal.Decimal) bool {
	return m.aligned(price, m.TickSize)
}

// LotAligned reports whether quantity is an exact multiple of the lot
// size.
func (m *Market) LotAligned(quantity decimal.Decimal) bool {
	return m.aligned(quantity, m.LotSize)
}

func (m *Market) aligned(value, step decimal.Decimal) bool {
	v, err := fixedpoint.FromDecimal(value)
	if err != nil {
		return false
	}

	s, err := fixedpoint.FromDecimal(step)
	if err != nil {
		return false
	}

	return fixedpoint.IsMultipleOf(v, s)
}

// WithinPriceBand checks the optional min/max price limits; a
// non-positive bound is not enforced.
func (m *Market) WithinPriceBand(price decimal.Decimal) bool {
	if m.MaxPrice.IsPositive() && price.GreaterThan(m.MaxPrice) {
		return false
	}

	if m.MinPrice.IsPositive() && price.LessThan(m.MinPrice) {
		return false
	}

	return true
}
