package model

import "strings"

// TierOrder KYC 等级顺序 (从低到高)
// 等级集合来自配置, 不做硬编码; 首位为缺省等级
type TierOrder struct {
	order []string
	rank  map[string]int
}

// NewTierOrder 创建等级顺序
func NewTierOrder(tiers []string) *TierOrder {
	order := make([]string, 0, len(tiers))
	rank := make(map[string]int, len(tiers))
	for i, t := range tiers {
		canonical := CanonicalTier(t)
		order = append(order, canonical)
		rank[canonical] = i
	}
	return &TierOrder{order: order, rank: rank}
}

// CanonicalTier 规范化等级表示
func CanonicalTier(tier string) string {
	return strings.ToUpper(strings.TrimSpace(tier))
}

// Lowest 最低等级 (缺省等级)
func (o *TierOrder) Lowest() string {
	if len(o.order) == 0 {
		return ""
	}
	return o.order[0]
}

// Rank 等级序号, 未知等级返回 -1
func (o *TierOrder) Rank(tier string) int {
	if r, ok := o.rank[CanonicalTier(tier)]; ok {
		return r
	}
	return -1
}

// IsValid 检查等级是否在配置集合内
func (o *TierOrder) IsValid(tier string) bool {
	return o.Rank(tier) >= 0
}

// IsUpgrade 检查是否为等级升级
func (o *TierOrder) IsUpgrade(from, to string) bool {
	fromRank := o.Rank(from)
	toRank := o.Rank(to)
	return fromRank >= 0 && toRank >= 0 && toRank > fromRank
}

// Tiers 返回等级列表副本
func (o *TierOrder) Tiers() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
