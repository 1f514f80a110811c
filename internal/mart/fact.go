// Package mart 组装集市层: 事实表与用户维度
package mart

import (
	"sort"
	"time"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// BuildFacts 从富化交易构建事实表
// 显式前置过滤: 仅保留已完成且 USD 金额已解析的交易
func BuildFacts(enriched []*model.EnrichedTransaction) []*model.FactTransaction {
	facts := make([]*model.FactTransaction, 0, len(enriched))

	for _, e := range enriched {
		if e.Status != string(model.TxStatusCompleted) {
			continue
		}
		if !e.DestinationAmountUSD.Valid {
			continue
		}

		t := time.UnixMilli(e.CreatedAt).UTC()
		facts = append(facts, &model.FactTransaction{
			TxID:                  e.TxID,
			UserID:                e.UserID,
			DestinationCurrency:   e.DestinationCurrency,
			DestinationAmountUSD:  e.DestinationAmountUSD.Decimal,
			KycLevelAtTransaction: e.KycLevelAtTransaction,
			CreatedAt:             e.CreatedAt,
			CreatedDay:            t.Format("2006-01-02"),
			WeekStart:             weekStart(t).Format("2006-01-02"),
			MonthStart:            monthStart(t).Format("2006-01-02"),
			Quarter:               quarterLabel(t),
			DayOfWeek:             isoWeekday(t),
			DayName:               t.Weekday().String(),
			MonthName:             t.Month().String(),
		})
	}

	// 输出按主键排序, 保证重跑产出逐字节一致
	sort.Slice(facts, func(i, j int) bool { return facts[i].TxID < facts[j].TxID })
	return facts
}

// weekStart 周起点 (周一)
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// monthStart 月起点
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// quarterLabel 季度标签, 如 2024-Q1
func quarterLabel(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return t.Format("2006") + "-Q" + string(rune('0'+q))
}

// isoWeekday ISO 星期序号: 周一=1 ... 周日=7
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
