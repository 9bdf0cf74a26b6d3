package service

import (
	"errors"
	"fmt"
	"strings"

	"genealogy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventService 家族活动与出席成员
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

// Viewer 当前请求的账号
type Viewer struct {
	AccountID   uint
	IsSuperuser bool
}

// EventFilter 活动筛选条件
type EventFilter struct {
	Date     DateRange
	Search   string
	Ordering string
	Page
}

var eventOrderFields = map[string]bool{"id": true, "name": true, "date": true, "location": true}

// ListEvents 超级管理员可见全部活动，普通成员仅可见自己出席的活动
func (s *EventService) ListEvents(viewer Viewer, f EventFilter) ([]models.Event, int64, error) {
	query := f.Date.apply(s.db.Model(&models.Event{}), "date")
	if !viewer.IsSuperuser {
		var memberIDs []uint
		if err := s.db.Model(&models.Member{}).Where("account_id = ?", viewer.AccountID).Pluck("id", &memberIDs).Error; err != nil {
			return nil, 0, err
		}
		if len(memberIDs) == 0 {
			return []models.Event{}, 0, nil
		}
		query = query.Where("id IN (?)",
			s.db.Model(&models.EventAttendee{}).Select("event_id").Where("member_id = ?", memberIDs[0]))
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern, pattern)
	}

	list, total, err := paginate[models.Event](query, &f.Page, orderClause(f.Ordering, eventOrderFields, "id DESC"))
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachAttendees(list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetEvent 按ID获取活动
func (s *EventService) GetEvent(id uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 活动 %d", ErrNotFound, id)
		}
		return nil, err
	}
	list := []models.Event{event}
	if err := s.attachAttendees(list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// SaveEvent 新增或更新活动，AttendeeIDs 整体替换出席成员
func (s *EventService) SaveEvent(event *models.Event) error {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return validationErrorf("活动名称不能为空")
	}
	if strings.TrimSpace(event.Location) == "" {
		return validationErrorf("活动地点不能为空")
	}
	if event.Date.IsZero() {
		return validationErrorf("活动日期不能为空")
	}
	attendees := normalizeIDs(event.AttendeeIDs)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if event.ID != 0 {
			var existing models.Event
			if err := tx.First(&existing, event.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: 活动 %d", ErrNotFound, event.ID)
				}
				return err
			}
			event.CreatedAt = existing.CreatedAt
		}
		if len(attendees) > 0 {
			var count int64
			if err := tx.Model(&models.Member{}).Where("id IN ?", attendees).Count(&count).Error; err != nil {
				return err
			}
			if int(count) != len(attendees) {
				return validationErrorf("出席成员不存在")
			}
		}

		if err := tx.Omit(clause.Associations).Save(event).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		if len(attendees) == 0 {
			return nil
		}
		rows := make([]models.EventAttendee, 0, len(attendees))
		for _, mid := range attendees {
			rows = append(rows, models.EventAttendee{EventID: event.ID, MemberID: mid})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return err
	}
	event.AttendeeIDs = attendees
	return nil
}

// DeleteEvent 删除活动及出席记录
func (s *EventService) DeleteEvent(id uint) error {
	if _, err := s.GetEvent(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, id).Error
	})
}

func (s *EventService) attachAttendees(list []models.Event) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	var rows []models.EventAttendee
	if err := s.db.Where("event_id IN ?", ids).Order("member_id ASC").Find(&rows).Error; err != nil {
		return err
	}
	byEvent := make(map[uint][]uint)
	for _, r := range rows {
		byEvent[r.EventID] = append(byEvent[r.EventID], r.MemberID)
	}
	for i := range list {
		list[i].AttendeeIDs = byEvent[list[i].ID]
		if list[i].AttendeeIDs == nil {
			list[i].AttendeeIDs = []uint{}
		}
	}
	return nil
}
