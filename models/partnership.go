package models

import "time"

// Partnership 配偶关系，对称关系按 (较小ID, 较大ID) 规范化存储
type Partnership struct {
	LowID     uint      `json:"low_id" gorm:"primaryKey;autoIncrement:false"`
	HighID    uint      `json:"high_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (Partnership) TableName() string {
	return "partnerships"
}

// NewPartnership 构造规范化的配偶关系
func NewPartnership(a, b uint) Partnership {
	if a > b {
		a, b = b, a
	}
	return Partnership{LowID: a, HighID: b}
}

// Other 返回关系中另一方的ID
func (p Partnership) Other(id uint) uint {
	if p.LowID == id {
		return p.HighID
	}
	return p.LowID
}
