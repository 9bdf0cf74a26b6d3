package models

import "time"

// RevokedToken 已注销的 refresh token（按 jti 记录）
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	JTI       string    `gorm:"column:jti;size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// TableName 设置表名
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
