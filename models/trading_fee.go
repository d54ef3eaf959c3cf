package models

import (
	"time"

	"gorm.io/gorm"
)

// TradingFee is one row of the fee schedule, in basis points. Group and
// MarketID may be the wildcard "any".
type TradingFee struct {
	ID        uint64 `gorm:"primaryKey"`
	MarketID  string `gorm:"default:any"`
	Group     string `gorm:"default:any"`
	MakerBps  int64  `gorm:"default:0"`
	TakerBps  int64  `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TradingFeeFor resolves the fee schedule row for a member group on a
// market. Rows are ranked so that a group match outweighs a market
// match:
//  1. both group and market_id match
//  2. group match
//  3. market_id match
//  4. both are 'any'
//  5. default (zero fees)
func TradingFeeFor(db *gorm.DB, group, marketID string) *TradingFee {
	var tradingFees []*TradingFee

	db.Where(
		"\"market_id\" IN ? AND \"group\" IN ?",
		[]string{marketID, "any"},
		[]string{group, "any"},
	).Find(&tradingFees)

	// The zero-fee fallback is a full wildcard so any schedule row
	// outweighs it.
	tradingFee := &TradingFee{MarketID: "any", Group: "any"}

	for _, tf := range tradingFees {
		if tradingFee.Weight() < tf.Weight() {
			tradingFee = tf
		}
	}

	return tradingFee
}

// Weight ranks schedule rows; the greatest weight wins.
func (t *TradingFee) Weight() int {
	var groupWeight, marketWeight int

	if t.Group != "any" {
		groupWeight = 10
	}

	if t.MarketID != "any" {
		marketWeight = 1
	}

	return groupWeight + marketWeight
}
