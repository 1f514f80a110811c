package model

import (
	"github.com/shopspring/decimal"
)

// EnrichedTransaction 富化交易 (中间层)
// 不变式: destination_amount_usd 为空当且仅当找不到适用汇率且币种不是稳定币
type EnrichedTransaction struct {
	TxID                  string              `json:"tx_id" gorm:"column:tx_id;type:varchar(64);primaryKey"`
	UserID                string              `json:"user_id" gorm:"column:user_id;type:varchar(64);not null;index:idx_int_enriched_user_id"`
	SourceCurrency        string              `json:"source_currency" gorm:"column:source_currency;type:varchar(16);not null"`
	DestinationCurrency   string              `json:"destination_currency" gorm:"column:destination_currency;type:varchar(16);not null"`
	SourceAmount          decimal.Decimal     `json:"source_amount" gorm:"column:source_amount;type:decimal(36,18);not null"`
	DestinationAmount     decimal.Decimal     `json:"destination_amount" gorm:"column:destination_amount;type:decimal(36,18);not null"`
	CreatedAt             int64               `json:"created_at" gorm:"column:created_at;not null"`
	Status                string              `json:"status" gorm:"column:status;type:varchar(20);not null"`
	ExchangeRate          decimal.NullDecimal `json:"exchange_rate" gorm:"column:exchange_rate;type:decimal(36,18)"`
	RateTimestamp         *int64              `json:"rate_timestamp" gorm:"column:rate_timestamp"`
	DestinationAmountUSD  decimal.NullDecimal `json:"destination_amount_usd" gorm:"column:destination_amount_usd;type:decimal(36,18)"`
	KycLevelAtTransaction string              `json:"kyc_level_at_transaction" gorm:"column:kyc_level_at_transaction;type:varchar(16);not null"`
	IsMissingRate         bool                `json:"is_missing_rate" gorm:"column:is_missing_rate;not null;default:false"`
	IsMissingKycHistory   bool                `json:"is_missing_kyc_history" gorm:"column:is_missing_kyc_history;not null;default:false"`
}

// TableName 表名
func (EnrichedTransaction) TableName() string {
	return "int_transactions_enriched"
}
