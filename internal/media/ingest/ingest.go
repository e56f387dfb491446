package ingest

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/models"
	"github.com/clipstream/media-server/pkg/httpErrors"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/clipstream/media-server/pkg/utils"
)

const (
	imageFieldName = "image"
	videoFieldName = "video"
)

// Ingestor parses multipart uploads and writes only accepted parts to temp
// storage. Every constraint is checked by a pure accept/reject decision before
// a single byte hits disk, and a rejected request never leaves accepted-looking
// files behind.
type Ingestor struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewIngestor(cfg *config.Config, logger logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:    cfg,
		logger: logger,
	}
}

func validImagePart(field, mimeType string) error {
	if field != imageFieldName {
		return httpErrors.NewBadRequestError(fmt.Sprintf("field name %q is not valid, expected %q", field, imageFieldName))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return httpErrors.NewBadRequestError(fmt.Sprintf("file type %q is not valid", mimeType))
	}
	return nil
}

func validVideoPart(field, mimeType string) error {
	if field != videoFieldName {
		return httpErrors.NewBadRequestError(fmt.Sprintf("field name %q is not valid, expected %q", field, videoFieldName))
	}
	if !strings.Contains(mimeType, "mp4") && !strings.Contains(mimeType, "quicktime") {
		return httpErrors.NewBadRequestError(fmt.Sprintf("file type %q is not valid", mimeType))
	}
	return nil
}

// ImageUpload accepts up to cfg.Media.ImageMaxFields image parts from the
// multipart field "image", bounded per file and in total.
func (i *Ingestor) ImageUpload(r *http.Request) ([]models.UploadedFile, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, httpErrors.NewBadRequestError("multipart body is required")
	}

	var (
		files     []models.UploadedFile
		totalSize int64
	)
	cleanup := func() {
		for _, f := range files {
			if removeErr := os.Remove(f.TempPath); removeErr != nil {
				i.logger.Errorf("ImageUpload cleanup: %v", removeErr)
			}
		}
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return nil, httpErrors.NewBadRequestError(err.Error())
		}

		if len(files) >= i.cfg.Media.ImageMaxFields {
			cleanup()
			return nil, httpErrors.NewBadRequestError(fmt.Sprintf("at most %d image fields allowed", i.cfg.Media.ImageMaxFields))
		}
		if err = validImagePart(part.FormName(), part.Header.Get("Content-Type")); err != nil {
			cleanup()
			return nil, err
		}
		if part.FileName() == "" {
			cleanup()
			return nil, httpErrors.NewBadRequestError("file is required")
		}

		file, err := i.writePart(part, i.cfg.Media.ImageTempDir, utils.NewMediaID(), i.cfg.Media.ImageMaxFileSize)
		if err != nil {
			cleanup()
			return nil, err
		}
		files = append(files, *file)

		totalSize += file.Size
		if totalSize > i.cfg.Media.ImageMaxTotalSize {
			cleanup()
			return nil, httpErrors.NewEntityTooLargeError(fmt.Sprintf("total upload size exceeds %d bytes", i.cfg.Media.ImageMaxTotalSize))
		}
	}

	if len(files) == 0 {
		return nil, httpErrors.NewBadRequestError("file is required")
	}
	return files, nil
}

// VideoUpload accepts exactly one video part from the multipart field "video".
// The stored filename stem doubles as the eventual transcode job name.
func (i *Ingestor) VideoUpload(r *http.Request) ([]models.UploadedFile, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, httpErrors.NewBadRequestError("multipart body is required")
	}

	var files []models.UploadedFile
	cleanup := func() {
		for _, f := range files {
			if removeErr := os.Remove(f.TempPath); removeErr != nil {
				i.logger.Errorf("VideoUpload cleanup: %v", removeErr)
			}
		}
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return nil, httpErrors.NewBadRequestError(err.Error())
		}

		if len(files) >= 1 {
			cleanup()
			return nil, httpErrors.NewBadRequestError("at most 1 video field allowed")
		}
		if err = validVideoPart(part.FormName(), part.Header.Get("Content-Type")); err != nil {
			cleanup()
			return nil, err
		}
		if part.FileName() == "" {
			cleanup()
			return nil, httpErrors.NewBadRequestError("file is required")
		}

		file, err := i.writePart(part, i.cfg.Media.VideoTempDir, utils.NewMediaID(), i.cfg.Media.VideoMaxFileSize)
		if err != nil {
			cleanup()
			return nil, err
		}
		files = append(files, *file)
	}

	if len(files) == 0 {
		return nil, httpErrors.NewBadRequestError("file is required")
	}
	return files, nil
}

// writePart streams one accepted part into dir under the generated id,
// keeping the original extension. The copy is bounded: a part exceeding
// maxSize is deleted again and rejected.
func (i *Ingestor) writePart(part *multipart.Part, dir, id string, maxSize int64) (*models.UploadedFile, error) {
	filename := id
	if ext := utils.GetExtension(part.FileName()); ext != "" {
		filename = fmt.Sprintf("%s.%s", id, ext)
	}
	tempPath := filepath.Join(dir, filename)

	dst, err := os.Create(tempPath)
	if err != nil {
		return nil, httpErrors.NewInternalServerError(err.Error())
	}

	written, err := io.Copy(dst, io.LimitReader(part, maxSize+1))
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		os.Remove(tempPath)
		return nil, httpErrors.NewInternalServerError("failed to write upload to temp storage")
	}
	if written > maxSize {
		os.Remove(tempPath)
		return nil, httpErrors.NewEntityTooLargeError(fmt.Sprintf("file size exceeds %d bytes", maxSize))
	}

	return &models.UploadedFile{
		TempPath:     tempPath,
		OriginalName: part.FileName(),
		MimeType:     part.Header.Get("Content-Type"),
		Size:         written,
	}, nil
}
