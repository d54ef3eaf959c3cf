package types

import (
	"github.com/shopspring/decimal"

	"github.com/zentex/zentex/matching"
)

type PayloadAction = string

var (
	ActionSubmit PayloadAction = "submit"
	ActionCancel PayloadAction = "cancel"
	ActionReload PayloadAction = "reload"
)

// MatchingPayloadMessage drives the matching worker. Submit and cancel
// carry an order; reload names the market whose book is rebuilt.
type MatchingPayloadMessage struct {
	Action PayloadAction   `json:"action"`
	Market string          `json:"market,omitempty"`
	Order  *matching.Order `json:"order,omitempty"`
}

// OrderProcessorPayloadMessage carries only the persisted order id; the
// processor re-reads the row under lock.
type OrderProcessorPayloadMessage struct {
	Action PayloadAction `json:"action"`
	ID     uint64        `json:"id"`
}

// TradeExecutorPayloadMessage hands one fill to settlement.
type TradeExecutorPayloadMessage struct {
	Market string         `json:"market"`
	Trade  matching.Trade `json:"trade"`
}

type Depth struct {
	Asks     [][]decimal.Decimal `json:"asks"`
	Bids     [][]decimal.Decimal `json:"bids"`
	Sequence uint64              `json:"sequence"`
}
