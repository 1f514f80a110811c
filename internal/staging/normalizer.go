// Package staging 将原始行清洗为类型化的暂存层行
package staging

import (
	"fmt"
	"strings"
	"time"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// 时间戳解析: 先尝试 ISO-8601, 再退回无时区的显式格式 (按 UTC 解释)
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// RejectedRow 被拒绝的行 (行级数据质量错误)
type RejectedRow struct {
	Key    string `json:"key"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Normalizer 暂存层清洗器
type Normalizer struct {
	stableCurrency string
}

// NewNormalizer 创建清洗器
func NewNormalizer(stableCurrency string) *Normalizer {
	return &Normalizer{stableCurrency: CleanCurrency(stableCurrency)}
}

// CleanCurrency 规范化币种代码: 去空白并转大写
func CleanCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseTimestamp 解析时间戳文本
// 逐个尝试支持的布局; 无时区布局按 UTC 解释
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// BaseCurrency 从交易对符号派生基础币种: 去除稳定币后缀
// 符号不带后缀时原样返回; 符号本身就是稳定币时返回稳定币
func (n *Normalizer) BaseCurrency(symbol string) string {
	s := CleanCurrency(symbol)
	if s == n.stableCurrency {
		return s
	}
	if base, ok := strings.CutSuffix(s, n.stableCurrency); ok && base != "" {
		return base
	}
	return s
}

// NormalizeTransactions 清洗原始交易
// 时间戳不可解析的行被单独拒绝, 不影响批次其余行
func (n *Normalizer) NormalizeTransactions(raw []*model.Transaction) ([]*model.StagedTransaction, []RejectedRow) {
	rows := make([]*model.StagedTransaction, 0, len(raw))
	var rejects []RejectedRow

	for _, tx := range raw {
		createdAt, err := ParseTimestamp(tx.CreatedAt)
		if err != nil {
			rejects = append(rejects, RejectedRow{Key: tx.TxID, Field: "created_at", Reason: err.Error()})
			continue
		}

		rows = append(rows, &model.StagedTransaction{
			TxID:                tx.TxID,
			UserID:              tx.UserID,
			SourceCurrency:      CleanCurrency(tx.SourceCurrency),
			DestinationCurrency: CleanCurrency(tx.DestinationCurrency),
			SourceAmount:        tx.SourceAmount,
			DestinationAmount:   tx.DestinationAmount,
			CreatedAt:           createdAt.UnixMilli(),
			CreatedDay:          createdAt.Format("2006-01-02"),
			CreatedHour:         createdAt.Hour(),
			CreatedYear:         createdAt.Year(),
			CreatedMonth:        int(createdAt.Month()),
			CreatedDom:          createdAt.Day(),
			Status:              strings.ToUpper(strings.TrimSpace(tx.Status)),
		})
	}

	return rows, rejects
}

// NormalizeUsers 清洗原始用户
func (n *Normalizer) NormalizeUsers(raw []*model.User) ([]*model.StagedUser, []RejectedRow) {
	rows := make([]*model.StagedUser, 0, len(raw))
	var rejects []RejectedRow

	for _, u := range raw {
		createdAt, err := ParseTimestamp(u.CreatedAt)
		if err != nil {
			rejects = append(rejects, RejectedRow{Key: u.UserID, Field: "created_at", Reason: err.Error()})
			continue
		}
		updatedAt, err := ParseTimestamp(u.UpdatedAt)
		if err != nil {
			rejects = append(rejects, RejectedRow{Key: u.UserID, Field: "updated_at", Reason: err.Error()})
			continue
		}

		rows = append(rows, &model.StagedUser{
			UserID:    u.UserID,
			KycLevel:  model.CanonicalTier(u.KycLevel),
			CreatedAt: createdAt.UnixMilli(),
			UpdatedAt: updatedAt.UnixMilli(),
		})
	}

	return rows, rejects
}

// NormalizeRates 清洗原始汇率蜡烛
// 纪元毫秒除以 1000 得到绝对时刻; base_currency 为纯字符串变换
func (n *Normalizer) NormalizeRates(raw []*model.RateCandle) []*model.StagedRate {
	rows := make([]*model.StagedRate, 0, len(raw))
	for _, c := range raw {
		rows = append(rows, &model.StagedRate{
			ID:           c.ID,
			Symbol:       CleanCurrency(c.Symbol),
			BaseCurrency: n.BaseCurrency(c.Symbol),
			OpenTime:     c.OpenTime,
			OpenAt:       c.OpenTime / 1000,
			CloseTime:    c.CloseTime,
			CloseAt:      c.CloseTime / 1000,
			Open:         c.Open,
			High:         c.High,
			Low:          c.Low,
			Close:        c.Close,
			Volume:       c.Volume,
			QuoteVolume:  c.QuoteVolume,
			TradeCount:   c.TradeCount,
		})
	}
	return rows
}
