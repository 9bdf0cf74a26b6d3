package models

import "time"

// ContributionLevel 年度会费标准
type ContributionLevel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Year      int       `json:"year" gorm:"uniqueIndex;not null"`
	Amount    int64     `json:"amount" gorm:"not null"`
	Note      *string   `json:"note" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (ContributionLevel) TableName() string {
	return "contribution_levels"
}
