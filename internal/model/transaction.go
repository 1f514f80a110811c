package model

import (
	"github.com/shopspring/decimal"
)

// TxStatus 交易状态
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusCompleted TxStatus = "COMPLETED"
	TxStatusFailed    TxStatus = "FAILED"
	TxStatusCancelled TxStatus = "CANCELLED"
)

// Transaction 原始交易 (由外部采集程序写入, 不可变)
// created_at 为文本, 由暂存层解析为时间戳
type Transaction struct {
	TxID                string          `json:"tx_id" gorm:"column:tx_id;type:varchar(64);primaryKey"`
	UserID              string          `json:"user_id" gorm:"column:user_id;type:varchar(64);not null"`
	SourceCurrency      string          `json:"source_currency" gorm:"column:source_currency;type:varchar(16);not null"`
	DestinationCurrency string          `json:"destination_currency" gorm:"column:destination_currency;type:varchar(16);not null"`
	SourceAmount        decimal.Decimal `json:"source_amount" gorm:"column:source_amount;type:decimal(36,18);not null"`
	DestinationAmount   decimal.Decimal `json:"destination_amount" gorm:"column:destination_amount;type:decimal(36,18);not null"`
	CreatedAt           string          `json:"created_at" gorm:"column:created_at;type:varchar(64);not null"`
	Status              string          `json:"status" gorm:"column:status;type:varchar(20);not null"`
}

// TableName 表名
func (Transaction) TableName() string {
	return "transactions"
}

// StagedTransaction 暂存层交易 (类型化、含日历派生列)
type StagedTransaction struct {
	TxID                string          `json:"tx_id" gorm:"column:tx_id;type:varchar(64);primaryKey"`
	UserID              string          `json:"user_id" gorm:"column:user_id;type:varchar(64);not null"`
	SourceCurrency      string          `json:"source_currency" gorm:"column:source_currency;type:varchar(16);not null"`
	DestinationCurrency string          `json:"destination_currency" gorm:"column:destination_currency;type:varchar(16);not null"`
	SourceAmount        decimal.Decimal `json:"source_amount" gorm:"column:source_amount;type:decimal(36,18);not null"`
	DestinationAmount   decimal.Decimal `json:"destination_amount" gorm:"column:destination_amount;type:decimal(36,18);not null"`
	CreatedAt           int64           `json:"created_at" gorm:"column:created_at;not null"` // Unix 毫秒
	CreatedDay          string          `json:"created_day" gorm:"column:created_day;type:date;not null"`
	CreatedHour         int             `json:"created_hour" gorm:"column:created_hour;not null"`
	CreatedYear         int             `json:"created_year" gorm:"column:created_year;not null"`
	CreatedMonth        int             `json:"created_month" gorm:"column:created_month;not null"`
	CreatedDom          int             `json:"created_dom" gorm:"column:created_dom;not null"`
	Status              string          `json:"status" gorm:"column:status;type:varchar(20);not null"`
}

// TableName 表名
func (StagedTransaction) TableName() string {
	return "stg_transactions"
}
