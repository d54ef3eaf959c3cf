package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string
type OrderType string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

const (
	TypeLimit  OrderType = "limit"
	TypeMarket OrderType = "market"
)

// Order is the in-memory representation the engine matches on. Price is
// zero for market orders. DisplayQuantity, when positive, makes the order
// an iceberg: only DisplayRemaining is visible to the book at a time and
// the hidden remainder replenishes it after fills.
type Order struct {
	ID               uint64          `json:"id"`
	UUID             uuid.UUID       `json:"uuid"`
	MemberID         uint64          `json:"member_id"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	Type             OrderType       `json:"type"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	FilledQuantity   decimal.Decimal `json:"filled_quantity"`
	DisplayQuantity  decimal.Decimal `json:"display_quantity"`
	DisplayRemaining decimal.Decimal `json:"display_remaining"`
	CreatedAt        time.Time       `json:"created_at"`

	// Seq is the book arrival sequence used for time priority. The book
	// assigns it on insert and again when an iceberg slice replenishes.
	Seq uint64 `json:"-"`
}

// OrderKey positions an order inside a book tree.
type OrderKey struct {
	ID    uint64
	Side  OrderSide
	Price decimal.Decimal
	Seq   uint64
}

func (o *Order) Key() *OrderKey {
	return &OrderKey{
		ID:    o.ID,
		Side:  o.Side,
		Price: o.Price,
		Seq:   o.Seq,
	}
}

func (o *Order) UnfilledQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

func (o *Order) Filled() bool {
	return o.UnfilledQuantity().IsZero()
}

func (o *Order) IsIceberg() bool {
	return o.DisplayQuantity.IsPositive()
}

// VisibleQuantity is what the book exposes to candidate building: the
// full unfilled quantity, or the current display slice for icebergs.
func (o *Order) VisibleQuantity() decimal.Decimal {
	unfilled := o.UnfilledQuantity()
	if !o.IsIceberg() {
		return unfilled
	}

	return decimal.Min(o.DisplayRemaining, unfilled)
}

// Fill records quantity as executed. For icebergs it reports whether the
// display slice was exhausted and replenished from the hidden remainder;
// the caller must then re-queue the order with fresh time priority.
func (o *Order) Fill(quantity decimal.Decimal) (replenished bool) {
	o.FilledQuantity = o.FilledQuantity.Add(quantity)

	if !o.IsIceberg() {
		return false
	}

	o.DisplayRemaining = o.DisplayRemaining.Sub(quantity)
	if o.DisplayRemaining.IsPositive() || o.Filled() {
		return false
	}

	o.DisplayRemaining = decimal.Min(o.DisplayQuantity, o.UnfilledQuantity())

	return true
}

// IsCrossed reports whether the given resting price satisfies this
// order's limit. Market orders cross any price.
func (o *Order) IsCrossed(price decimal.Decimal) bool {
	if o.Type == TypeMarket {
		return true
	}

	if o.Side == SideBuy {
		return price.LessThanOrEqual(o.Price)
	}

	return price.GreaterThanOrEqual(o.Price)
}
