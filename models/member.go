package models

import (
	"time"

	"gorm.io/gorm"
)

// 学历
const (
	EducationNone         = "none"
	EducationElementary   = "elementary"
	EducationMiddleSchool = "middle_school"
	EducationHighSchool   = "high_school"
	EducationCollege      = "college"
	EducationUniversity   = "university"
	EducationEngineer     = "engineer"
	EducationDoctorate    = "doctorate"
	EducationMaster       = "master"
)

// GetEducations 获取所有学历选项
func GetEducations() []string {
	return []string{
		EducationNone,
		EducationElementary,
		EducationMiddleSchool,
		EducationHighSchool,
		EducationCollege,
		EducationUniversity,
		EducationEngineer,
		EducationDoctorate,
		EducationMaster,
	}
}

// IsValidEducation 校验学历取值
func IsValidEducation(s string) bool {
	for _, e := range GetEducations() {
		if e == s {
			return true
		}
	}
	return false
}

// Member 家族成员（族谱中的节点）
// ID 不使用自增，由服务层按 max(id)+1 分配
type Member struct {
	ID          uint     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MotherID    *uint    `json:"mother_id" gorm:"index"`
	FatherID    *uint    `json:"father_id" gorm:"index"`
	Mother      *Member  `json:"-" gorm:"foreignKey:MotherID;constraint:OnDelete:SET NULL"`
	Father      *Member  `json:"-" gorm:"foreignKey:FatherID;constraint:OnDelete:SET NULL"`
	PartnerIDs  []uint   `json:"partner_ids" gorm:"-"` // 由 partnerships 表加载，升序
	Gender      string   `json:"gender" gorm:"size:10;not null;index"`
	Name        string   `json:"name" gorm:"size:255;not null;index"`
	Img         *string  `json:"img" gorm:"type:text"`
	BirthDate   Date     `json:"birth_date" gorm:"not null"`
	DeathDate   *Date    `json:"death_date"`
	Phone       *string  `json:"phone" gorm:"size:12"`
	Email       *string  `json:"email" gorm:"size:50"`
	Address     *string  `json:"address" gorm:"size:255"`
	FamilyInfo  *string  `json:"family_info" gorm:"type:text"`
	Generation  int      `json:"generation" gorm:"not null;default:1;index"`
	Education   string   `json:"education" gorm:"size:20;default:none;index"`
	Achievement *string  `json:"achievement" gorm:"type:text"`
	AccountID   *uint    `json:"account_id" gorm:"uniqueIndex"`
	Account     *Account `json:"-" gorm:"foreignKey:AccountID;constraint:OnDelete:SET NULL"`
	// IsAdmin 由关联账号的超级管理员标记派生，不单独存储
	IsAdmin   bool      `json:"is_admin" gorm:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Member) TableName() string {
	return "members"
}

// AfterFind 根据预加载的账号派生 is_admin
func (m *Member) AfterFind(tx *gorm.DB) error {
	m.IsAdmin = m.Account != nil && m.Account.IsSuperuser
	return nil
}

// HasParent 是否登记了父亲或母亲
func (m *Member) HasParent() bool {
	return m.MotherID != nil || m.FatherID != nil
}

// ParentIDs 返回已登记的父母ID
func (m *Member) ParentIDs() []uint {
	ids := make([]uint, 0, 2)
	if m.MotherID != nil {
		ids = append(ids, *m.MotherID)
	}
	if m.FatherID != nil {
		ids = append(ids, *m.FatherID)
	}
	return ids
}

// FirstPartnerID 展示用的首位配偶（ID 最小者）
func (m *Member) FirstPartnerID() (uint, bool) {
	if len(m.PartnerIDs) == 0 {
		return 0, false
	}
	return m.PartnerIDs[0], true
}
