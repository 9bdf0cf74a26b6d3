package models

import "time"

// Event 家族活动
type Event struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Location    string    `json:"location" gorm:"size:255;not null"`
	Date        Date      `json:"date" gorm:"not null;index"`
	Description *string   `json:"description" gorm:"type:text"`
	Attendees   []Member  `json:"-" gorm:"many2many:event_attendees;"`
	AttendeeIDs []uint    `json:"attendees" gorm:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Event) TableName() string {
	return "events"
}

// EventAttendee event_attendees 关联表
type EventAttendee struct {
	EventID  uint `gorm:"primaryKey"`
	MemberID uint `gorm:"primaryKey;index"`
}

// TableName 设置表名
func (EventAttendee) TableName() string {
	return "event_attendees"
}
