package model

import (
	"github.com/shopspring/decimal"
)

// FactTransaction 交易事实表
// 仅含已完成且 USD 金额已解析的交易
type FactTransaction struct {
	TxID                  string          `json:"tx_id" gorm:"column:tx_id;type:varchar(64);primaryKey"`
	UserID                string          `json:"user_id" gorm:"column:user_id;type:varchar(64);not null;index:idx_fact_transactions_user_id"`
	DestinationCurrency   string          `json:"destination_currency" gorm:"column:destination_currency;type:varchar(16);not null"`
	DestinationAmountUSD  decimal.Decimal `json:"destination_amount_usd" gorm:"column:destination_amount_usd;type:decimal(36,18);not null"`
	KycLevelAtTransaction string          `json:"kyc_level_at_transaction" gorm:"column:kyc_level_at_transaction;type:varchar(16);not null"`
	CreatedAt             int64           `json:"created_at" gorm:"column:created_at;not null"`
	CreatedDay            string          `json:"created_day" gorm:"column:created_day;type:date;not null;index:idx_fact_transactions_created_day"`
	WeekStart             string          `json:"week_start" gorm:"column:week_start;type:date;not null"`
	MonthStart            string          `json:"month_start" gorm:"column:month_start;type:date;not null"`
	Quarter               string          `json:"quarter" gorm:"column:quarter;type:varchar(8);not null"`
	DayOfWeek             int             `json:"day_of_week" gorm:"column:day_of_week;not null"`
	DayName               string          `json:"day_name" gorm:"column:day_name;type:varchar(16);not null"`
	MonthName             string          `json:"month_name" gorm:"column:month_name;type:varchar(16);not null"`
}

// TableName 表名
func (FactTransaction) TableName() string {
	return "fact_transactions"
}

// 维度档位常量
const (
	TierNone = "None"

	FreqTierCasual  = "Casual"
	FreqTierRegular = "Regular"
	FreqTierPower   = "Power"

	ValueTierBronze = "Bronze"
	ValueTierSilver = "Silver"
	ValueTierGold   = "Gold"
	ValueTierWhale  = "Whale"
)

// UserDimension 用户维度表
// 零交易用户同样保留一行, 指标为零值/空值, 档位为 None
type UserDimension struct {
	UserID            string          `json:"user_id" gorm:"column:user_id;type:varchar(64);primaryKey"`
	KycLevel          string          `json:"kyc_level" gorm:"column:kyc_level;type:varchar(16);not null"`
	CreatedAt         int64           `json:"created_at" gorm:"column:created_at;not null"`
	TxCount           int64           `json:"tx_count" gorm:"column:tx_count;not null;default:0"`
	LifetimeVolumeUSD decimal.Decimal `json:"lifetime_volume_usd" gorm:"column:lifetime_volume_usd;type:decimal(36,18);not null"`
	FirstActivityAt   *int64          `json:"first_activity_at" gorm:"column:first_activity_at"`
	LastActivityAt    *int64          `json:"last_activity_at" gorm:"column:last_activity_at"`
	ActiveDays        int64           `json:"active_days" gorm:"column:active_days;not null;default:0"`
	FrequencyTier     string          `json:"frequency_tier" gorm:"column:frequency_tier;type:varchar(16);not null"`
	ValueTier         string          `json:"value_tier" gorm:"column:value_tier;type:varchar(16);not null"`
}

// TableName 表名
func (UserDimension) TableName() string {
	return "dim_user"
}
