package service

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileHeader 构造 multipart 文件头
func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestUploadService_SaveAndGet(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(setupTestDB(t), dir, 1)

	content := []byte("family photo")
	res, err := svc.Save(newFileHeader(t, "Photo.JPG", content))
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(res.File))
	assert.Equal(t, "Photo.JPG", res.OriginalName)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), res.FileData)

	onDisk, err := os.ReadFile(filepath.Join(dir, res.File))
	require.NoError(t, err)
	assert.Equal(t, content, onDisk)

	got, err := svc.Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.FileData, got.FileData)

	_, err = svc.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadService_SizeLimit(t *testing.T) {
	svc := NewUploadService(setupTestDB(t), t.TempDir(), 1)
	big := bytes.Repeat([]byte("x"), 1<<20+1)
	_, err := svc.Save(newFileHeader(t, "big.bin", big))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Save(nil)
	assert.ErrorIs(t, err, ErrValidation)
}
