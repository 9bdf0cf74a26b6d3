package models

import (
	"time"
)

// Account 登录账号，可选地一对一关联一个家族成员
type Account struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Password    string    `json:"-" gorm:"size:255;not null"`
	Email       string    `json:"email" gorm:"size:100"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	IsSuperuser bool      `json:"is_superuser" gorm:"default:false;index"` // 超级管理员，拥有全部写权限
	DateJoined  time.Time `json:"date_joined" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Account) TableName() string {
	return "accounts"
}
