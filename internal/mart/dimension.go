package mart

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// 档位阈值: 对计数/金额的固定阶梯函数
var (
	freqCasualMax  = int64(9)
	freqRegularMax = int64(49)

	valueBronzeMax = decimal.NewFromInt(1_000)
	valueSilverMax = decimal.NewFromInt(10_000)
	valueGoldMax   = decimal.NewFromInt(100_000)
)

// userAgg 单用户聚合中间态
type userAgg struct {
	txCount  int64
	volume   decimal.Decimal
	firstAt  int64
	lastAt   int64
	dayCount map[string]struct{}
}

// BuildUserDimension 构建用户维度
// 事实按 user_id 聚合后左连接到完整用户集: 零交易用户保留, 指标为零值/空值
func BuildUserDimension(users []*model.StagedUser, facts []*model.FactTransaction) []*model.UserDimension {
	aggs := make(map[string]*userAgg)
	for _, f := range facts {
		agg, ok := aggs[f.UserID]
		if !ok {
			agg = &userAgg{volume: decimal.Zero, dayCount: make(map[string]struct{})}
			aggs[f.UserID] = agg
		}
		agg.txCount++
		agg.volume = agg.volume.Add(f.DestinationAmountUSD)
		if agg.firstAt == 0 || f.CreatedAt < agg.firstAt {
			agg.firstAt = f.CreatedAt
		}
		if f.CreatedAt > agg.lastAt {
			agg.lastAt = f.CreatedAt
		}
		agg.dayCount[f.CreatedDay] = struct{}{}
	}

	dims := make([]*model.UserDimension, 0, len(users))
	for _, u := range users {
		dim := &model.UserDimension{
			UserID:            u.UserID,
			KycLevel:          u.KycLevel,
			CreatedAt:         u.CreatedAt,
			LifetimeVolumeUSD: decimal.Zero,
			FrequencyTier:     model.TierNone,
			ValueTier:         model.TierNone,
		}

		if agg, ok := aggs[u.UserID]; ok {
			firstAt := agg.firstAt
			lastAt := agg.lastAt
			dim.TxCount = agg.txCount
			dim.LifetimeVolumeUSD = agg.volume
			dim.FirstActivityAt = &firstAt
			dim.LastActivityAt = &lastAt
			dim.ActiveDays = int64(len(agg.dayCount))
			dim.FrequencyTier = classifyFrequency(agg.txCount)
			dim.ValueTier = classifyValue(agg.txCount, agg.volume)
		}

		dims = append(dims, dim)
	}

	sort.Slice(dims, func(i, j int) bool { return dims[i].UserID < dims[j].UserID })
	return dims
}

// classifyFrequency 按交易笔数分档
func classifyFrequency(txCount int64) string {
	switch {
	case txCount <= 0:
		return model.TierNone
	case txCount <= freqCasualMax:
		return model.FreqTierCasual
	case txCount <= freqRegularMax:
		return model.FreqTierRegular
	default:
		return model.FreqTierPower
	}
}

// classifyValue 按累计 USD 交易量分档
func classifyValue(txCount int64, volume decimal.Decimal) string {
	switch {
	case txCount <= 0:
		return model.TierNone
	case volume.LessThan(valueBronzeMax):
		return model.ValueTierBronze
	case volume.LessThan(valueSilverMax):
		return model.ValueTierSilver
	case volume.LessThan(valueGoldMax):
		return model.ValueTierGold
	default:
		return model.ValueTierWhale
	}
}
