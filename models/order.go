package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/validate"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zentex/zentex/matching"
	"github.com/zentex/zentex/pkg/fixedpoint"
)

type OrderSide string
type OrderType string
type OrderStatus string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

const (
	TypeLimit  OrderType = "limit"
	TypeMarket OrderType = "market"
)

const (
	StatusPending         OrderStatus = "pending"
	StatusOpen            OrderStatus = "open"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
)

var (
	ErrInvalidTransition     = errors.New("market.order.invalid_status_transition")
	ErrInsufficientLiquidity = errors.New("market.order.insufficient_market_liquidity")
)

// Order is the persisted side of an order. Price is null for market
// orders. Locked tracks the remaining reserved funds backing the order
// and HoldID points at the reservation in the ledger; OriginLocked is
// what was reserved at acceptance. Fee rates are captured in basis
// points at acceptance so later fee-table changes cannot reprice a
// live order.
type Order struct {
	ID                uint64              `json:"id" gorm:"primaryKey"`
	UUID              uuid.UUID           `json:"uuid"`
	MemberID          uint64              `json:"member_id" validate:"required"`
	MarketID          string              `json:"market_id" validate:"required"`
	Side              OrderSide           `json:"side" validate:"SideValidator"`
	OrdType           OrderType           `json:"ord_type" validate:"OrdTypeValidator"`
	Price             decimal.NullDecimal `json:"price" gorm:"type:numeric(38,18)" validate:"PriceValidator"`
	Quantity          decimal.Decimal     `json:"quantity" gorm:"type:numeric(38,18)" validate:"QuantityValidator"`
	RemainingQuantity decimal.Decimal     `json:"remaining_quantity" gorm:"type:numeric(38,18)"`
	DisplayQuantity   decimal.Decimal     `json:"display_quantity" gorm:"type:numeric(38,18);default:0.0" validate:"DisplayQuantityValidator"`
	Locked            decimal.Decimal     `json:"locked" gorm:"type:numeric(38,18);default:0.0"`
	OriginLocked      decimal.Decimal     `json:"origin_locked" gorm:"type:numeric(38,18);default:0.0"`
	FundsReceived     decimal.Decimal     `json:"funds_received" gorm:"type:numeric(38,18);default:0.0"`
	HoldID            uint64              `json:"hold_id"`
	MakerFeeBps       int64               `json:"maker_fee_bps"`
	TakerFeeBps       int64               `json:"taker_fee_bps"`
	Status            OrderStatus         `json:"status"`
	TradesCount       int64               `json:"trades_count" gorm:"default:0"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`

	// market is set by Validate so the validators run against the
	// caller's snapshot of the market instead of reading the database.
	market *Market
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}

	return nil
}

// StatusForRemaining derives the non-terminal status of a live order
// from how much of it is left.
func StatusForRemaining(remaining, origin decimal.Decimal) OrderStatus {
	switch {
	case remaining.IsZero():
		return StatusFilled
	case remaining.Equal(origin):
		return StatusOpen
	default:
		return StatusPartiallyFilled
	}
}

// CanTransition reports whether the status change is legal. Acceptance
// takes a pending order to open or rejected; rejected never happens
// later. Filled, canceled and rejected are terminal.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case StatusPending:
		switch to {
		case StatusOpen, StatusRejected:
			return true
		}
	case StatusOpen, StatusPartiallyFilled:
		switch to {
		case StatusPartiallyFilled, StatusFilled, StatusCanceled:
			return true
		}
	}

	return false
}

func (o *Order) CanCancel() bool {
	return o.Status == StatusOpen || o.Status == StatusPartiallyFilled
}

// TransitionTo applies a status change, rejecting anything the state
// machine forbids.
func (o *Order) TransitionTo(status OrderStatus) error {
	if o.Status == status {
		return nil
	}

	if !CanTransition(o.Status, status) {
		return ErrInvalidTransition
	}

	o.Status = status

	return nil
}

func (o Order) Messages() map[string]string {
	return validate.MS{
		"required": "market.order.invalid_{field}",
	}
}

func (o Order) SideValidator(side OrderSide) bool {
	return side == SideBuy || side == SideSell
}

// Market orders carry no price; limit orders must.
func (o Order) OrdTypeValidator(ordType OrderType) bool {
	switch ordType {
	case TypeLimit:
		return o.Price.Valid
	case TypeMarket:
		return !o.Price.Valid
	}

	return false
}

func (o Order) PriceValidator(price decimal.NullDecimal) bool {
	if o.OrdType == TypeMarket {
		return true
	}

	dPrice := price.Decimal
	if !dPrice.IsPositive() {
		return false
	}

	return o.market.TickAligned(dPrice) && o.market.WithinPriceBand(dPrice)
}

func (o Order) QuantityValidator(quantity decimal.Decimal) bool {
	if !quantity.IsPositive() {
		return false
	}

	if quantity.LessThan(o.market.MinAmount) {
		return false
	}

	return o.market.LotAligned(quantity)
}

// Zero means the order is not an iceberg. A positive display quantity
// must itself be lot aligned and no larger than the full quantity.
func (o Order) DisplayQuantityValidator(display decimal.Decimal) bool {
	if display.IsZero() {
		return true
	}

	if display.IsNegative() || display.GreaterThan(o.Quantity) {
		return false
	}

	return o.market.LotAligned(display)
}

// Validate runs the acceptance checks against the given market.
func (o *Order) Validate(market *Market) error {
	o.market = market

	v := validate.Struct(o)
	if !v.Validate() {
		return v.Errors.OneError()
	}

	return nil
}

func (o *Order) Market(db *gorm.DB) *Market {
	market := &Market{}

	db.First(market, "symbol = ?", o.MarketID)

	return market
}

func (o *Order) Member(db *gorm.DB) *Member {
	member := &Member{}

	db.First(member, "id = ?", o.MemberID)

	return member
}

func (o *Order) IsLimitOrder() bool {
	return o.OrdType == TypeLimit
}

func (o *Order) IsMarketOrder() bool {
	return o.OrdType == TypeMarket
}

func (o *Order) FilledQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.RemainingQuantity)
}

// LockCurrency is the currency the order's reservation is held in:
// quote for buys, base for sells.
func (o *Order) LockCurrency(market *Market) string {
	if o.Side == SideBuy {
		return market.QuoteUnit
	}

	return market.BaseUnit
}

// IncomeCurrency is the currency the member receives on a fill.
func (o *Order) IncomeCurrency(market *Market) string {
	if o.Side == SideBuy {
		return market.BaseUnit
	}

	return market.QuoteUnit
}

// ComputeLocked returns the funds to reserve at acceptance. A limit buy
// locks price*quantity plus the worst-case taker fee; a sell locks the
// base quantity outright. A market buy walks the opposite side of the
// book depth and fails when resting liquidity cannot cover the
// quantity.
func (o *Order) ComputeLocked(db *gorm.DB, market *Market) (decimal.Decimal, error) {
	if o.Side == SideSell {
		return o.Quantity, nil
	}

	if o.IsLimitOrder() {
		price, err := fixedpoint.FromDecimal(o.Price.Decimal)
		if err != nil {
			return decimal.Zero, err
		}
		quantity, err := fixedpoint.FromDecimal(o.Quantity)
		if err != nil {
			return decimal.Zero, err
		}

		quote := price.MulRound(quantity)
		fee := fixedpoint.BpsFeeCeil(quote, o.TakerFeeBps)

		return quote.Add(fee).Decimal(), nil
	}

	required := fixedpoint.Zero
	expected := o.Quantity

	for _, level := range GetDepth(db, SideSell, o.MarketID) {
		if !expected.IsPositive() {
			break
		}

		levelPrice, err := fixedpoint.FromDecimal(level[0])
		if err != nil {
			return decimal.Zero, err
		}
		levelQuantity, err := fixedpoint.FromDecimal(decimal.Min(expected, level[1]))
		if err != nil {
			return decimal.Zero, err
		}

		required = required.Add(levelPrice.MulRound(levelQuantity))
		expected = expected.Sub(levelQuantity.Decimal())
	}

	if expected.IsPositive() {
		return decimal.Zero, ErrInsufficientLiquidity
	}

	fee := fixedpoint.BpsFeeCeil(required, o.TakerFeeBps)

	return required.Add(fee).Decimal(), nil
}

type PriceLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// GetDepth aggregates remaining quantity of live limit orders per price,
// best price first for the given side.
func GetDepth(db *gorm.DB, side OrderSide, marketID string) [][]decimal.Decimal {
	depth := make([][]decimal.Decimal, 0)
	orders := make([]*Order, 0)

	tx := db.
		Where("market_id = ? AND ord_type = ? AND side = ? AND status IN ?",
			marketID, TypeLimit, side, []OrderStatus{StatusOpen, StatusPartiallyFilled})

	switch side {
	case SideBuy:
		tx = tx.Order("price desc")
	default:
		tx = tx.Order("price asc")
	}

	tx.Find(&orders)

	var levels []PriceLevel
	for _, order := range orders {
		price := order.Price.Decimal
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(price) {
			levels[n-1].Amount = levels[n-1].Amount.Add(order.RemainingQuantity)
			continue
		}
		levels = append(levels, PriceLevel{Price: price, Amount: order.RemainingQuantity})
	}

	for _, level := range levels {
		depth = append(depth, []decimal.Decimal{level.Price, level.Amount})
	}

	return depth
}

// ToMatchingAttributes builds the in-memory order the engine matches on.
func (o *Order) ToMatchingAttributes() *matching.Order {
	var side matching.OrderSide
	if o.Side == SideBuy {
		side = matching.SideBuy
	} else {
		side = matching.SideSell
	}

	ordType := matching.TypeLimit
	if o.IsMarketOrder() {
		ordType = matching.TypeMarket
	}

	return &matching.Order{
		ID:              o.ID,
		UUID:            o.UUID,
		MemberID:        o.MemberID,
		Symbol:          o.MarketID,
		Side:            side,
		Type:            ordType,
		Price:           o.Price.Decimal,
		Quantity:        o.Quantity,
		FilledQuantity:  o.FilledQuantity(),
		DisplayQuantity: o.DisplayQuantity,
		CreatedAt:       o.CreatedAt,
	}
}
