// Package enrich 实现时点富化引擎
//
// 每笔交易独立求解两个 as-of 连接:
//   (a) 交易时刻之前最近的汇率蜡烛
//   (b) 交易时刻有效的 KYC 等级区间
//
// 两者缺失都是数据质量标记而非错误, 交易仍会进入下游。
package enrich

import (
	"github.com/shopspring/decimal"

	"github.com/vela-analytics/vela-warehouse/internal/asof"
	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// Enricher 时点富化引擎
type Enricher struct {
	stableCurrency string
	tiers          *model.TierOrder
	rates          *asof.Index[string, *model.StagedRate]
	kyc            *asof.Index[string, *model.KycSnapshot]
}

// New 创建富化引擎
// 汇率索引按基础币种分区, KYC 索引按用户分区; 两者共用同一个最近前驱查找
func New(stableCurrency string, tiers *model.TierOrder, rates []*model.StagedRate, history []*model.KycSnapshot) *Enricher {
	rateIndex := asof.NewIndex[string, *model.StagedRate]()
	for _, r := range rates {
		rateIndex.Add(r.BaseCurrency, r.OpenTime, r.ID, r)
	}

	kycIndex := asof.NewIndex[string, *model.KycSnapshot]()
	for i, rec := range history {
		kycIndex.Add(rec.UserID, rec.ValidFrom, int64(i), rec)
	}

	return &Enricher{
		stableCurrency: stableCurrency,
		tiers:          tiers,
		rates:          rateIndex,
		kyc:            kycIndex,
	}
}

// Enrich 富化单笔交易
func (e *Enricher) Enrich(tx *model.StagedTransaction) *model.EnrichedTransaction {
	out := &model.EnrichedTransaction{
		TxID:                tx.TxID,
		UserID:              tx.UserID,
		SourceCurrency:      tx.SourceCurrency,
		DestinationCurrency: tx.DestinationCurrency,
		SourceAmount:        tx.SourceAmount,
		DestinationAmount:   tx.DestinationAmount,
		CreatedAt:           tx.CreatedAt,
		Status:              tx.Status,
	}

	e.resolveRate(tx, out)
	e.resolveKyc(tx, out)

	return out
}

// EnrichAll 富化一批交易
func (e *Enricher) EnrichAll(txs []*model.StagedTransaction) []*model.EnrichedTransaction {
	out := make([]*model.EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, e.Enrich(tx))
	}
	return out
}

// resolveRate as-of 汇率解析
// 稳定币恒为 1.0, 不查找; 其余币种取 open_time <= created_at 的最近蜡烛
func (e *Enricher) resolveRate(tx *model.StagedTransaction, out *model.EnrichedTransaction) {
	lookupCurrency := tx.DestinationCurrency

	if lookupCurrency == e.stableCurrency {
		out.ExchangeRate = decimal.NewNullDecimal(decimal.NewFromInt(1))
		out.DestinationAmountUSD = decimal.NewNullDecimal(tx.DestinationAmount)
		return
	}

	entry, ok := e.rates.Lookup(lookupCurrency, tx.CreatedAt)
	if !ok {
		out.IsMissingRate = true
		return
	}

	candle := entry.Value
	rate := candle.Close
	out.ExchangeRate = decimal.NewNullDecimal(rate)
	out.RateTimestamp = &candle.OpenTime
	out.DestinationAmountUSD = decimal.NewNullDecimal(tx.DestinationAmount.Mul(rate))
}

// resolveKyc as-of KYC 解析
// 无包含 created_at 的区间时回退到最低等级并打标记
func (e *Enricher) resolveKyc(tx *model.StagedTransaction, out *model.EnrichedTransaction) {
	entry, ok := e.kyc.Lookup(tx.UserID, tx.CreatedAt)
	if ok && entry.Value.Contains(tx.CreatedAt) {
		out.KycLevelAtTransaction = entry.Value.KycLevel
		return
	}

	out.KycLevelAtTransaction = e.tiers.Lowest()
	out.IsMissingKycHistory = true
}
