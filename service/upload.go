package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"genealogy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadService 文件上传，文件落盘到上传目录，记录入库
type UploadService struct {
	db       *gorm.DB
	dir      string
	maxBytes int64
}

func NewUploadService(db *gorm.DB, dir string, maxSizeMB int64) *UploadService {
	return &UploadService{db: db, dir: dir, maxBytes: maxSizeMB << 20}
}

// UploadResult 上传结果，附带 base64 编码的文件内容
type UploadResult struct {
	models.UploadedFile
	FileData string `json:"file_data"`
}

// Save 保存上传文件，文件名使用 uuid 避免冲突
func (s *UploadService) Save(fh *multipart.FileHeader) (*UploadResult, error) {
	if fh == nil {
		return nil, validationErrorf("未选择文件")
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, validationErrorf("文件大小不能超过 %d MB", s.maxBytes>>20)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	record := models.UploadedFile{
		File:         name,
		OriginalName: filepath.Base(fh.Filename),
		Size:         written,
		ContentType:  fh.Header.Get("Content-Type"),
	}
	if err := s.db.Create(&record).Error; err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return nil, fmt.Errorf("保存文件记录失败: %w", err)
	}
	return s.withData(&record)
}

// Find 按ID读取文件记录
func (s *UploadService) Find(id uint) (*models.UploadedFile, error) {
	var record models.UploadedFile
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 文件 %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// Get 按ID读取文件记录与内容
func (s *UploadService) Get(id uint) (*UploadResult, error) {
	record, err := s.Find(id)
	if err != nil {
		return nil, err
	}
	return s.withData(record)
}

// Path 返回文件在磁盘上的路径
func (s *UploadService) Path(record *models.UploadedFile) string {
	return filepath.Join(s.dir, filepath.Base(record.File))
}

func (s *UploadService) withData(record *models.UploadedFile) (*UploadResult, error) {
	data, err := os.ReadFile(s.Path(record))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return &UploadResult{
		UploadedFile: *record,
		FileData:     base64.StdEncoding.EncodeToString(data),
	}, nil
}
