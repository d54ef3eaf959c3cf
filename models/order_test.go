package models

import (
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zentex/zentex/config"
)

func TestMain(m *testing.M) {
	config.NewLoggerService()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	// The in-memory database lives on a single connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Member{}, &Market{}, &Order{}, &Trade{}, &TradingFee{}); err != nil {
		panic(err)
	}

	config.DataBase = db

	os.Exit(m.Run())
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func seedMarket(t *testing.T, symbol string) *Market {
	t.Helper()

	market := &Market{
		Symbol:    symbol,
		BaseUnit:  "btc",
		QuoteUnit: "usdt",
		TickSize:  d("0.01"),
		LotSize:   d("0.001"),
		MinAmount: d("0.001"),
		State:     MarketStateEnabled,
	}
	if err := config.DataBase.Create(market).Error; err != nil {
		t.Fatalf("seed market: %v", err)
	}

	return market
}

func limitOrder(market string, side OrderSide, price, quantity string) *Order {
	return &Order{
		MemberID: 1,
		MarketID: market,
		Side:     side,
		OrdType:  TypeLimit,
		Price:    decimal.NewNullDecimal(d(price)),
		Quantity: d(quantity),
		Status:   StatusOpen,
	}
}

func TestStatusForRemaining(t *testing.T) {
	tests := []struct {
		remaining string
		origin    string
		want      OrderStatus
	}{
		{"5", "5", StatusOpen},
		{"3", "5", StatusPartiallyFilled},
		{"0.000000000000000001", "5", StatusPartiallyFilled},
		{"0", "5", StatusFilled},
	}

	for _, tt := range tests {
		if got := StatusForRemaining(d(tt.remaining), d(tt.origin)); got != tt.want {
			t.Errorf("StatusForRemaining(%s, %s) = %s, want %s", tt.remaining, tt.origin, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{StatusPending, StatusOpen},
		{StatusPending, StatusRejected},
		{StatusOpen, StatusPartiallyFilled},
		{StatusOpen, StatusFilled},
		{StatusOpen, StatusCanceled},
		{StatusPartiallyFilled, StatusFilled},
		{StatusPartiallyFilled, StatusCanceled},
	}
	for _, tt := range allowed {
		if !CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tt.from, tt.to)
		}
	}

	forbidden := []struct{ from, to OrderStatus }{
		{StatusPending, StatusFilled},
		{StatusPending, StatusCanceled},
		{StatusFilled, StatusCanceled},
		{StatusCanceled, StatusOpen},
		{StatusRejected, StatusOpen},
		{StatusOpen, StatusRejected},
		{StatusPartiallyFilled, StatusOpen},
		{StatusFilled, StatusPartiallyFilled},
	}
	for _, tt := range forbidden {
		if CanTransition(tt.from, tt.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tt.from, tt.to)
		}
	}
}

func TestTransitionTo(t *testing.T) {
	order := &Order{Status: StatusOpen}

	if err := order.TransitionTo(StatusPartiallyFilled); err != nil {
		t.Fatalf("open -> partially_filled: %v", err)
	}
	if err := order.TransitionTo(StatusPartiallyFilled); err != nil {
		t.Fatalf("repeated partial fill must be a no-op: %v", err)
	}
	if err := order.TransitionTo(StatusFilled); err != nil {
		t.Fatalf("partially_filled -> filled: %v", err)
	}

	if err := order.TransitionTo(StatusCanceled); err != ErrInvalidTransition {
		t.Errorf("filled -> canceled: err = %v, want ErrInvalidTransition", err)
	}
	if order.Status != StatusFilled {
		t.Errorf("status mutated on rejected transition: %s", order.Status)
	}
}

func TestCanCancel(t *testing.T) {
	for status, want := range map[OrderStatus]bool{
		StatusPending:         false,
		StatusOpen:            true,
		StatusPartiallyFilled: true,
		StatusFilled:          false,
		StatusCanceled:        false,
		StatusRejected:        false,
	} {
		order := &Order{Status: status}
		if order.CanCancel() != want {
			t.Errorf("CanCancel(%s) = %v, want %v", status, !want, want)
		}
	}
}

func TestOrderValidate(t *testing.T) {
	market := seedMarket(t, "validusdt")

	valid := limitOrder("validusdt", SideBuy, "10.25", "0.5")
	if err := valid.Validate(market); err != nil {
		t.Errorf("valid order rejected: %v", err)
	}

	misalignedPrice := limitOrder("validusdt", SideBuy, "10.001", "0.5")
	if err := misalignedPrice.Validate(market); err == nil {
		t.Error("price off the tick grid must be rejected")
	}

	misalignedQuantity := limitOrder("validusdt", SideBuy, "10", "0.0005")
	if err := misalignedQuantity.Validate(market); err == nil {
		t.Error("quantity off the lot grid must be rejected")
	}

	belowMin := limitOrder("validusdt", SideSell, "10", "0")
	if err := belowMin.Validate(market); err == nil {
		t.Error("zero quantity must be rejected")
	}

	pricedMarket := limitOrder("validusdt", SideBuy, "10", "0.5")
	pricedMarket.OrdType = TypeMarket
	if err := pricedMarket.Validate(market); err == nil {
		t.Error("market order carrying a price must be rejected")
	}

	unpricedLimit := &Order{MemberID: 1, MarketID: "validusdt", Side: SideBuy, OrdType: TypeLimit, Quantity: d("0.5")}
	if err := unpricedLimit.Validate(market); err == nil {
		t.Error("limit order without a price must be rejected")
	}

	oversizedDisplay := limitOrder("validusdt", SideSell, "10", "0.5")
	oversizedDisplay.DisplayQuantity = d("0.6")
	if err := oversizedDisplay.Validate(market); err == nil {
		t.Error("display slice larger than the order must be rejected")
	}

	iceberg := limitOrder("validusdt", SideSell, "10", "0.5")
	iceberg.DisplayQuantity = d("0.1")
	if err := iceberg.Validate(market); err != nil {
		t.Errorf("valid iceberg rejected: %v", err)
	}
}

func TestComputeLockedLimitBuyIncludesFeeCap(t *testing.T) {
	market := seedMarket(t, "lockusdt")

	order := limitOrder("lockusdt", SideBuy, "10", "5")
	order.TakerFeeBps = 30

	locked, err := order.ComputeLocked(config.DataBase, market)
	if err != nil {
		t.Fatalf("ComputeLocked: %v", err)
	}

	// 50 quote plus the 30 bps worst-case fee.
	if !locked.Equal(d("50.15")) {
		t.Errorf("locked = %s, want 50.15", locked)
	}
}

func TestComputeLockedSellLocksBaseQuantity(t *testing.T) {
	market := seedMarket(t, "sellusdt")

	order := limitOrder("sellusdt", SideSell, "10", "5")
	order.TakerFeeBps = 30

	locked, err := order.ComputeLocked(config.DataBase, market)
	if err != nil {
		t.Fatalf("ComputeLocked: %v", err)
	}

	if !locked.Equal(d("5")) {
		t.Errorf("locked = %s, want 5", locked)
	}
}

func TestComputeLockedMarketBuyWalksDepth(t *testing.T) {
	market := seedMarket(t, "mktusdt")

	for _, resting := range []struct{ price, quantity string }{
		{"10", "3"},
		{"11", "2"},
	} {
		row := limitOrder("mktusdt", SideSell, resting.price, resting.quantity)
		row.Quantity = d(resting.quantity)
		row.RemainingQuantity = d(resting.quantity)
		if err := config.DataBase.Create(row).Error; err != nil {
			t.Fatalf("seed resting order: %v", err)
		}
	}

	order := &Order{
		MemberID: 2,
		MarketID: "mktusdt",
		Side:     SideBuy,
		OrdType:  TypeMarket,
		Quantity: d("4"),
	}
	order.TakerFeeBps = 30

	locked, err := order.ComputeLocked(config.DataBase, market)
	if err != nil {
		t.Fatalf("ComputeLocked: %v", err)
	}

	// 3 at 10 plus 1 at 11 is 41 quote; 30 bps on top is 0.123.
	if !locked.Equal(d("41.123")) {
		t.Errorf("locked = %s, want 41.123", locked)
	}

	order.Quantity = d("10")
	if _, err := order.ComputeLocked(config.DataBase, market); err != ErrInsufficientLiquidity {
		t.Errorf("err = %v, want ErrInsufficientLiquidity", err)
	}
}
