package model

import (
	"github.com/shopspring/decimal"
)

// RateCandle 原始汇率蜡烛 (OHLCV), 每个 (symbol, open_time) 唯一
// open_time/close_time 为 Unix 毫秒
type RateCandle struct {
	ID          int64           `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Symbol      string          `json:"symbol" gorm:"column:symbol;type:varchar(32);not null;uniqueIndex:uq_rates_symbol_open_time"`
	OpenTime    int64           `json:"open_time" gorm:"column:open_time;not null;uniqueIndex:uq_rates_symbol_open_time"`
	CloseTime   int64           `json:"close_time" gorm:"column:close_time;not null"`
	Open        decimal.Decimal `json:"open" gorm:"column:open;type:decimal(36,18);not null"`
	High        decimal.Decimal `json:"high" gorm:"column:high;type:decimal(36,18);not null"`
	Low         decimal.Decimal `json:"low" gorm:"column:low;type:decimal(36,18);not null"`
	Close       decimal.Decimal `json:"close" gorm:"column:close;type:decimal(36,18);not null"`
	Volume      decimal.Decimal `json:"volume" gorm:"column:volume;type:decimal(36,18);not null"`
	QuoteVolume decimal.Decimal `json:"quote_volume" gorm:"column:quote_volume;type:decimal(36,18);not null"`
	TradeCount  int64           `json:"trade_count" gorm:"column:trade_count;not null;default:0"`
}

// TableName 表名
func (RateCandle) TableName() string {
	return "rates"
}

// StagedRate 暂存层汇率蜡烛
// base_currency 由 symbol 去除稳定币后缀得到; open_at/close_at 为 Unix 秒
type StagedRate struct {
	ID           int64           `json:"id" gorm:"column:id;primaryKey"`
	Symbol       string          `json:"symbol" gorm:"column:symbol;type:varchar(32);not null"`
	BaseCurrency string          `json:"base_currency" gorm:"column:base_currency;type:varchar(16);not null;uniqueIndex:uq_stg_rates_currency_open_time"`
	OpenTime     int64           `json:"open_time" gorm:"column:open_time;not null;uniqueIndex:uq_stg_rates_currency_open_time"`
	OpenAt       int64           `json:"open_at" gorm:"column:open_at;not null"`
	CloseTime    int64           `json:"close_time" gorm:"column:close_time;not null"`
	CloseAt      int64           `json:"close_at" gorm:"column:close_at;not null"`
	Open         decimal.Decimal `json:"open" gorm:"column:open;type:decimal(36,18);not null"`
	High         decimal.Decimal `json:"high" gorm:"column:high;type:decimal(36,18);not null"`
	Low          decimal.Decimal `json:"low" gorm:"column:low;type:decimal(36,18);not null"`
	Close        decimal.Decimal `json:"close" gorm:"column:close;type:decimal(36,18);not null"`
	Volume       decimal.Decimal `json:"volume" gorm:"column:volume;type:decimal(36,18);not null"`
	QuoteVolume  decimal.Decimal `json:"quote_volume" gorm:"column:quote_volume;type:decimal(36,18);not null"`
	TradeCount   int64           `json:"trade_count" gorm:"column:trade_count;not null;default:0"`
}

// TableName 表名
func (StagedRate) TableName() string {
	return "stg_rates"
}
