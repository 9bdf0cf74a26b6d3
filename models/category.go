package models

import (
	"time"
)

// ExpenseCategory 支出类别（后台维护）
type ExpenseCategory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Note      *string   `json:"note" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

// GetDefaultExpenseCategories 首次启动时写入的支出类别
func GetDefaultExpenseCategories() []string {
	return []string{"祭祀", "修缮", "奖学", "慰问", "其他"}
}
