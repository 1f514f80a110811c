package model

// KycSnapshot KYC 等级历史记录 (SCD2)
// 同一用户的有效区间连续且不重叠; 至多一条 valid_to 为空 (当前等级)
type KycSnapshot struct {
	RecordID  string `json:"record_id" gorm:"column:record_id;type:varchar(36);primaryKey"`
	UserID    string `json:"user_id" gorm:"column:user_id;type:varchar(64);not null;index:idx_kyc_snapshot_user_valid_from"`
	KycLevel  string `json:"kyc_level" gorm:"column:kyc_level;type:varchar(16);not null"`
	ValidFrom int64  `json:"valid_from" gorm:"column:valid_from;not null;index:idx_kyc_snapshot_user_valid_from"`
	ValidTo   *int64 `json:"valid_to" gorm:"column:valid_to"`
}

// TableName 表名
func (KycSnapshot) TableName() string {
	return "kyc_snapshot"
}

// IsOpen 是否为当前有效区间
func (s *KycSnapshot) IsOpen() bool {
	return s.ValidTo == nil
}

// Contains 检查时间点是否落在有效区间内: [valid_from, valid_to)
func (s *KycSnapshot) Contains(at int64) bool {
	if at < s.ValidFrom {
		return false
	}
	return s.ValidTo == nil || at < *s.ValidTo
}
