package api

import (
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// UploadHandler 文件上传
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload 上传文件
// @Summary 上传文件
// @Description 表单字段 file，返回文件记录及 base64 内容
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件"
// @Success 201 {object} Response{data=service.UploadResult}
// @Failure 400 {object} Response "未选择文件或超出大小限制"
// @Router /api/v1/files [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "请选择要上传的文件")
		return
	}
	result, err := h.uploads.Save(fh)
	if err != nil {
		handleError(c, err, "上传失败")
		return
	}
	Created(c, result)
}

// Get 文件记录与内容
// @Summary 获取文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {object} Response{data=service.UploadResult}
// @Failure 404 {object} Response
// @Router /api/v1/files/{id} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.uploads.Get(id)
	if err != nil {
		handleError(c, err, "读取文件失败")
		return
	}
	Success(c, result)
}

// Download 下载原始文件
// @Summary 下载文件
// @Tags 文件
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {file} file
// @Failure 404 {object} Response
// @Router /api/v1/files/{id}/download [get]
func (h *UploadHandler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.uploads.Find(id)
	if err != nil {
		handleError(c, err, "读取文件失败")
		return
	}
	c.FileAttachment(h.uploads.Path(record), record.OriginalName)
}
