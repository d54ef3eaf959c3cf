package cron

import (
	"time"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/models"
)

// MarketPriceJob caches each enabled market's last trade price so
// tickers read Redis instead of the trades table.
type MarketPriceJob struct {
}

func (j *MarketPriceJob) Process() error {
	for _, market := range models.GetEnabledMarkets(config.DataBase) {
		price, ok := models.LastPrice(config.DataBase, market.Symbol)
		if !ok {
			continue
		}

		key := "zentex:" + market.Symbol + ":ticker:last"
		if err := config.Redis.SetKey(key, price, 24*time.Hour); err != nil {
			return err
		}
	}

	return nil
}
