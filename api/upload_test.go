package api

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"genealogy/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadRouter(t *testing.T) *gin.Engine {
	h := NewUploadHandler(service.NewUploadService(setupTestDB(t), t.TempDir(), 1))
	r := gin.New()
	r.POST("/files", h.Upload)
	r.GET("/files/:id", h.Get)
	r.GET("/files/:id/download", h.Download)
	return r
}

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler_UploadAndDownload(t *testing.T) {
	r := newUploadRouter(t)
	content := []byte("族谱扫描件")

	w := serve(r, multipartRequest(t, "file", "scan.png", content))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result service.UploadResult
	decode(t, w, &result)
	assert.Equal(t, "scan.png", result.OriginalName)
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), result.FileData)

	w = doJSON(r, "GET", "/files/"+itoa(result.ID), nil)
	require.Equal(t, 200, w.Code)

	w = doJSON(r, "GET", "/files/"+itoa(result.ID)+"/download", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scan.png")

	assert.Equal(t, http.StatusNotFound, doJSON(r, "GET", "/files/77/download", nil).Code)
}

func TestUploadHandler_Rejects(t *testing.T) {
	r := newUploadRouter(t)

	w := serve(r, multipartRequest(t, "attachment", "scan.png", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少 file 字段")

	w = serve(r, multipartRequest(t, "file", "big.bin", bytes.Repeat([]byte("x"), 1<<20+1)))
	assert.Equal(t, http.StatusBadRequest, w.Code, "超出大小限制")
}
