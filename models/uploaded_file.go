package models

import "time"

// UploadedFile 上传文件记录，File 为相对上传目录的路径
type UploadedFile struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	File         string    `json:"file" gorm:"size:255;not null"`
	OriginalName string    `json:"original_name" gorm:"size:255"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 设置表名
func (UploadedFile) TableName() string {
	return "uploaded_files"
}
