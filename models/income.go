package models

import (
	"time"
)

// Income 收入记录：成员缴纳年度会费，或赞助人赞助
// (contribution_level_id, member_id) 组合唯一，同一成员同一年度只能缴费一次
type Income struct {
	ID                  uint               `json:"id" gorm:"primaryKey"`
	Date                Date               `json:"date" gorm:"not null;index"`
	ContributionLevelID *uint              `json:"contribution_level_id" gorm:"uniqueIndex:idx_income_level_member"`
	MemberID            *uint              `json:"member_id" gorm:"uniqueIndex:idx_income_level_member;index"`
	SponsorID           *uint              `json:"sponsor_id" gorm:"index"`
	ContributionLevel   *ContributionLevel `json:"contributor,omitempty" gorm:"foreignKey:ContributionLevelID;constraint:OnDelete:SET NULL"`
	Member              *Member            `json:"member,omitempty" gorm:"foreignKey:MemberID;constraint:OnDelete:SET NULL"`
	Sponsor             *Sponsor           `json:"sponsor,omitempty" gorm:"foreignKey:SponsorID;constraint:OnDelete:SET NULL"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// TableName 设置表名
func (Income) TableName() string {
	return "incomes"
}

// Amount 收入金额：会费取年度标准，赞助取赞助金额
func (in *Income) Amount() int64 {
	var total int64
	if in.ContributionLevel != nil {
		total += in.ContributionLevel.Amount
	}
	if in.Sponsor != nil {
		total += in.Sponsor.Amount
	}
	return total
}
