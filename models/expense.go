package models

import (
	"time"
)

// Expense 支出记录
type Expense struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	Amount     int64            `json:"amount" gorm:"not null"`
	Date       Date             `json:"date" gorm:"not null;index"`
	CategoryID *uint            `json:"category_id" gorm:"index"`
	Category   *ExpenseCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}
