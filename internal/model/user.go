package model

// User 原始用户 (可变, kyc_level 随时间变化)
type User struct {
	UserID    string `json:"user_id" gorm:"column:user_id;type:varchar(64);primaryKey"`
	KycLevel  string `json:"kyc_level" gorm:"column:kyc_level;type:varchar(16);not null"`
	CreatedAt string `json:"created_at" gorm:"column:created_at;type:varchar(64);not null"`
	UpdatedAt string `json:"updated_at" gorm:"column:updated_at;type:varchar(64);not null"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// StagedUser 暂存层用户
type StagedUser struct {
	UserID    string `json:"user_id" gorm:"column:user_id;type:varchar(64);primaryKey"`
	KycLevel  string `json:"kyc_level" gorm:"column:kyc_level;type:varchar(16);not null"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;not null"` // Unix 毫秒
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;not null"` // Unix 毫秒
}

// TableName 表名
func (StagedUser) TableName() string {
	return "stg_users"
}
