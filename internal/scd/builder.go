// Package scd 构建 KYC 等级历史 (SCD2 区间)
//
// 历史是唯一跨运行累积的派生实体: 每次运行将当前 users 快照
// 与既有区间列表协调, 检测等级变化事件并关闭/开启区间。
package scd

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// Delta 一次快照协调产生的变更
type Delta struct {
	// Inserts 新开启的区间 (valid_to 为空)
	Inserts []*model.KycSnapshot
	// Closes 被关闭的既有区间 (valid_to 已填充)
	Closes []*model.KycSnapshot
}

// Empty 是否无变更
func (d *Delta) Empty() bool {
	return len(d.Inserts) == 0 && len(d.Closes) == 0
}

// Reconcile 将当前用户快照与既有历史协调
//
// 状态机: 状态为每个用户的当前开放区间。
//   - 用户存在且无开放区间: 在 updated_at 开启首个区间
//   - 用户存在且等级变化: 在新 updated_at 关闭旧区间, 同时开启新区间
//   - 用户从源中消失 (失效): 在 observedAt 强制关闭开放区间
//
// rejected 为本次清洗中被行级拒绝的用户 ID: 行仍在源中, 只是暂时
// 不可解析, 既不参与变更检测也不视为删除, 其历史保持原样。
// existing 中同一用户出现多个开放区间视为历史损坏, 返回错误。
func Reconcile(existing []*model.KycSnapshot, users []*model.StagedUser, rejected map[string]bool, observedAt int64) (*Delta, error) {
	open := make(map[string]*model.KycSnapshot)
	for _, rec := range existing {
		if !rec.IsOpen() {
			continue
		}
		if _, dup := open[rec.UserID]; dup {
			return nil, fmt.Errorf("corrupt kyc history: user %s has multiple open intervals", rec.UserID)
		}
		open[rec.UserID] = rec
	}

	delta := &Delta{}
	seen := make(map[string]bool, len(users))

	for _, u := range users {
		if rejected[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		level := model.CanonicalTier(u.KycLevel)

		cur, ok := open[u.UserID]
		if !ok {
			// 首个区间从记录的变更时间开始
			delta.Inserts = append(delta.Inserts, newInterval(u.UserID, level, effectiveAt(u)))
			continue
		}

		if cur.KycLevel == level {
			continue
		}

		// 等级变化: 关闭旧区间, 开启新区间, 边界为新记录的 updated_at
		closeAt := u.UpdatedAt
		if closeAt < cur.ValidFrom {
			// 乱序的 updated_at 不允许产生倒置区间
			closeAt = cur.ValidFrom
		}
		cur.ValidTo = &closeAt
		delta.Closes = append(delta.Closes, cur)
		delta.Inserts = append(delta.Inserts, newInterval(u.UserID, level, closeAt))
	}

	// 失效: 源中已删除的用户关闭其开放区间; 被拒绝的行不是删除
	for userID, cur := range open {
		if seen[userID] || rejected[userID] {
			continue
		}
		closeAt := observedAt
		if closeAt < cur.ValidFrom {
			closeAt = cur.ValidFrom
		}
		cur.ValidTo = &closeAt
		delta.Closes = append(delta.Closes, cur)
	}

	return delta, nil
}

// newInterval 开启新区间
func newInterval(userID, level string, from int64) *model.KycSnapshot {
	return &model.KycSnapshot{
		RecordID:  uuid.NewString(),
		UserID:    userID,
		KycLevel:  level,
		ValidFrom: from,
		ValidTo:   nil,
	}
}

// effectiveAt 首个区间的起点: 优先 updated_at, 缺失时退回 created_at
func effectiveAt(u *model.StagedUser) int64 {
	if u.UpdatedAt > 0 {
		return u.UpdatedAt
	}
	return u.CreatedAt
}

// ValidateHistory 校验单用户历史不变式:
// 区间按 valid_from 排序后连续且不重叠, 且至多一条开放区间
func ValidateHistory(records []*model.KycSnapshot) error {
	byUser := make(map[string][]*model.KycSnapshot)
	for _, rec := range records {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}

	for userID, recs := range byUser {
		sorted := make([]*model.KycSnapshot, len(recs))
		copy(sorted, recs)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j].ValidFrom < sorted[j-1].ValidFrom; j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}

		openCount := 0
		for i, rec := range sorted {
			if rec.IsOpen() {
				openCount++
				if i != len(sorted)-1 {
					return fmt.Errorf("user %s: open interval is not the latest", userID)
				}
				continue
			}
			if *rec.ValidTo < rec.ValidFrom {
				return fmt.Errorf("user %s: inverted interval at %d", userID, rec.ValidFrom)
			}
			if i < len(sorted)-1 && *rec.ValidTo != sorted[i+1].ValidFrom {
				return fmt.Errorf("user %s: gap or overlap at %d", userID, *rec.ValidTo)
			}
		}
		if openCount > 1 {
			return fmt.Errorf("user %s: multiple open intervals", userID)
		}
	}
	return nil
}
