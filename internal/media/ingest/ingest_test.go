package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/pkg/httpErrors"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/stretchr/testify/require"
)

type uploadPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Logger: config.Logger{Development: true, Encoding: "console", Level: "error"},
		Media: config.MediaConfig{
			ImageTempDir:      filepath.Join(base, "tmp", "images"),
			VideoTempDir:      filepath.Join(base, "tmp", "videos"),
			ImageMaxFields:    4,
			ImageMaxFileSize:  307200,
			ImageMaxTotalSize: 1228800,
			VideoMaxFileSize:  52428800,
		},
	}
	require.NoError(t, os.MkdirAll(cfg.Media.ImageTempDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Media.VideoTempDir, 0o755))
	return cfg
}

func newIngestor(t *testing.T) (*Ingestor, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	log := logger.NewApiLogger(cfg)
	log.InitLogger()
	return NewIngestor(cfg, log), cfg
}

func uploadRequest(t *testing.T, parts []uploadPart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		header.Set("Content-Type", p.contentType)
		dst, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = dst.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func requireRestStatus(t *testing.T, err error, status int) {
	t.Helper()
	var restErr httpErrors.RestErr
	require.True(t, errors.As(err, &restErr), "expected RestErr, got %v", err)
	require.Equal(t, status, restErr.Status())
}

func requireDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestImageUploadAcceptsValidFiles(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "image", filename: "cat.png", contentType: "image/png", data: bytes.Repeat([]byte{0xAA}, 512)},
		{field: "image", filename: "dog.jpeg", contentType: "image/jpeg", data: bytes.Repeat([]byte{0xBB}, 256)},
	})

	files, err := ingestor.ImageUpload(req)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.Equal(t, int64(512), files[0].Size)
	require.Equal(t, "cat.png", files[0].OriginalName)
	require.Equal(t, "image/png", files[0].MimeType)
	for _, f := range files {
		info, err := os.Stat(f.TempPath)
		require.NoError(t, err)
		require.Equal(t, f.Size, info.Size())
		require.Equal(t, cfg.Media.ImageTempDir, filepath.Dir(f.TempPath))
	}
	// Server-assigned names, not client filenames.
	require.NotEqual(t, "cat.png", filepath.Base(files[0].TempPath))
}

func TestImageUploadRejectsWrongFieldName(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "file", filename: "cat.png", contentType: "image/png", data: []byte("png")},
	})

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
	requireDirEmpty(t, cfg.Media.ImageTempDir)
}

func TestImageUploadRejectsNonImageMimeType(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "image", filename: "clip.mp4", contentType: "video/mp4", data: []byte("mp4")},
	})

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
	requireDirEmpty(t, cfg.Media.ImageTempDir)
}

func TestImageUploadRejectsOversizeFile(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	cfg.Media.ImageMaxFileSize = 100
	req := uploadRequest(t, []uploadPart{
		{field: "image", filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{0x01}, 101)},
	})

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusRequestEntityTooLarge)
	requireDirEmpty(t, cfg.Media.ImageTempDir)
}

func TestImageUploadRejectsOversizeTotal(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	cfg.Media.ImageMaxFileSize = 100
	cfg.Media.ImageMaxTotalSize = 150
	req := uploadRequest(t, []uploadPart{
		{field: "image", filename: "a.png", contentType: "image/png", data: bytes.Repeat([]byte{0x01}, 90)},
		{field: "image", filename: "b.png", contentType: "image/png", data: bytes.Repeat([]byte{0x02}, 90)},
	})

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusRequestEntityTooLarge)
	// The already accepted first file must be cleaned up too.
	requireDirEmpty(t, cfg.Media.ImageTempDir)
}

func TestImageUploadRejectsTooManyFields(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	var parts []uploadPart
	for i := 0; i < cfg.Media.ImageMaxFields+1; i++ {
		parts = append(parts, uploadPart{
			field:       "image",
			filename:    fmt.Sprintf("f%d.png", i),
			contentType: "image/png",
			data:        []byte("x"),
		})
	}

	_, err := ingestor.ImageUpload(uploadRequest(t, parts))
	requireRestStatus(t, err, http.StatusBadRequest)
	requireDirEmpty(t, cfg.Media.ImageTempDir)
}

func TestImageUploadRequiresFile(t *testing.T) {
	ingestor, _ := newIngestor(t)
	req := uploadRequest(t, nil)

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "file is required")
}

func TestImageUploadRequiresMultipartBody(t *testing.T) {
	ingestor, _ := newIngestor(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	_, err := ingestor.ImageUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
}

func TestVideoUploadAssignsOpaqueName(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "video", filename: "holiday.mp4", contentType: "video/mp4", data: bytes.Repeat([]byte{0xCC}, 2048)},
	})

	files, err := ingestor.VideoUpload(req)
	require.NoError(t, err)
	require.Len(t, files, 1)

	base := filepath.Base(files[0].TempPath)
	require.Equal(t, cfg.Media.VideoTempDir, filepath.Dir(files[0].TempPath))
	require.Equal(t, ".mp4", filepath.Ext(base))
	stem := base[:len(base)-len(".mp4")]
	require.Len(t, stem, 32)
	require.NotContains(t, stem, "-")
}

func TestVideoUploadAcceptsQuicktime(t *testing.T) {
	ingestor, _ := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "video", filename: "clip.mov", contentType: "video/quicktime", data: []byte("mov")},
	})

	files, err := ingestor.VideoUpload(req)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestVideoUploadRejectsNonVideoMimeType(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "video", filename: "cat.png", contentType: "image/png", data: []byte("png")},
	})

	_, err := ingestor.VideoUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
	requireDirEmpty(t, cfg.Media.VideoTempDir)
}

func TestVideoUploadRejectsSecondFile(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	req := uploadRequest(t, []uploadPart{
		{field: "video", filename: "a.mp4", contentType: "video/mp4", data: []byte("a")},
		{field: "video", filename: "b.mp4", contentType: "video/mp4", data: []byte("b")},
	})

	_, err := ingestor.VideoUpload(req)
	requireRestStatus(t, err, http.StatusBadRequest)
	requireDirEmpty(t, cfg.Media.VideoTempDir)
}

func TestVideoUploadRejectsOversizeFile(t *testing.T) {
	ingestor, cfg := newIngestor(t)
	cfg.Media.VideoMaxFileSize = 1024
	req := uploadRequest(t, []uploadPart{
		{field: "video", filename: "big.mp4", contentType: "video/mp4", data: bytes.Repeat([]byte{0x01}, 1025)},
	})

	_, err := ingestor.VideoUpload(req)
	requireRestStatus(t, err, http.StatusRequestEntityTooLarge)
	requireDirEmpty(t, cfg.Media.VideoTempDir)
}

func TestValidImagePart(t *testing.T) {
	require.NoError(t, validImagePart("image", "image/png"))
	require.NoError(t, validImagePart("image", "image/webp"))
	require.Error(t, validImagePart("images", "image/png"))
	require.Error(t, validImagePart("image", "application/octet-stream"))
}

func TestValidVideoPart(t *testing.T) {
	require.NoError(t, validVideoPart("video", "video/mp4"))
	require.NoError(t, validVideoPart("video", "video/quicktime"))
	require.Error(t, validVideoPart("file", "video/mp4"))
	require.Error(t, validVideoPart("video", "video/webm"))
}
