package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/media"
	"github.com/clipstream/media-server/internal/media/ingest"
	"github.com/clipstream/media-server/pkg/httpErrors"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/clipstream/media-server/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const defaultStreamChunkSize = 1_000_000

type mediaHandler struct {
	cfg      *config.Config
	mediaUC  media.UseCase
	ingestor *ingest.Ingestor
	fileRepo media.FileRepository
	logger   logger.Logger
}

func NewMediaHandler(
	cfg *config.Config,
	mediaUC media.UseCase,
	ingestor *ingest.Ingestor,
	fileRepo media.FileRepository,
	log logger.Logger,
) media.Handlers {
	return &mediaHandler{
		cfg:      cfg,
		mediaUC:  mediaUC,
		ingestor: ingestor,
		fileRepo: fileRepo,
		logger:   log,
	}
}

func (h *mediaHandler) UploadImage() echo.HandlerFunc {
	return func(c echo.Context) error {
		files, err := h.ingestor.ImageUpload(c.Request())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		medias, err := h.mediaUC.NormalizeImages(c.Request().Context(), files)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, medias)
	}
}

func (h *mediaHandler) UploadVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		files, err := h.ingestor.VideoUpload(c.Request())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		medias, err := h.mediaUC.StoreVideos(c.Request().Context(), files)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, medias)
	}
}

func (h *mediaHandler) UploadVideoHLS() echo.HandlerFunc {
	return func(c echo.Context) error {
		files, err := h.ingestor.VideoUpload(c.Request())
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		medias, err := h.mediaUC.EnqueueHLS(c.Request().Context(), files)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, medias)
	}
}

func (h *mediaHandler) GetVideoStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := h.mediaUC.GetVideoStatus(c.Request().Context(), c.Param("id"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (h *mediaHandler) ServeImage() echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := h.resolveFile(h.fileRepo.ImagePath, c.Param("name"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.File(path)
	}
}

// ServeVideoStream serves one bounded chunk of a stored video per request.
// The Range header is mandatory, the chunk size is fixed, and the final chunk
// is clamped to the remaining bytes.
func (h *mediaHandler) ServeVideoStream() echo.HandlerFunc {
	return func(c echo.Context) error {
		rangeHeader := c.Request().Header.Get("Range")
		if rangeHeader == "" {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError(httpErrors.RangeHeaderRequired.Error()))
		}

		path, err := h.resolveFile(h.fileRepo.VideoPath, c.Param("name"))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewNotFoundError(err.Error()))
		}
		size := info.Size()

		start, err := parseRangeStart(rangeHeader)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError(err.Error()))
		}
		if start >= size {
			return utils.ErrResponseWithLog(c, h.logger,
				httpErrors.NewRangeNotSatisfiableError(fmt.Sprintf("start %d beyond file size %d", start, size)))
		}

		chunkSize := h.cfg.Media.StreamChunkSize
		if chunkSize <= 0 {
			chunkSize = defaultStreamChunkSize
		}
		end := start + chunkSize - 1
		if end > size-1 {
			end = size - 1
		}
		contentLength := end - start + 1

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "video/*"
		}

		file, err := os.Open(path)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewNotFoundError(err.Error()))
		}
		defer file.Close()
		if _, err = file.Seek(start, io.SeekStart); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewInternalServerError(err.Error()))
		}

		res := c.Response()
		res.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		res.Header().Set("Accept-Ranges", "bytes")
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(contentLength, 10))
		res.Header().Set(echo.HeaderContentType, contentType)
		res.WriteHeader(http.StatusPartialContent)

		// A closed client connection surfaces as a write error and stops the
		// copy, nothing more to do than note it.
		if _, err = io.CopyN(res, file, contentLength); err != nil {
			h.logger.Debugf("video stream %s interrupted: %v", c.Param("name"), err)
		}
		return nil
	}
}

func (h *mediaHandler) ServeManifest() echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := h.fileRepo.HLSPath(c.Param("id"), "master.m3u8")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError(err.Error()))
		}
		if _, err = os.Stat(path); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewNotFoundError(err.Error()))
		}
		return c.File(path)
	}
}

func (h *mediaHandler) ServeSegment() echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := h.fileRepo.HLSPath(c.Param("id"), c.Param("*"))
		if err != nil {
			if errors.Is(err, media.ErrPathEscape) {
				return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewBadRequestError(err.Error()))
			}
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return utils.ErrResponseWithLog(c, h.logger, httpErrors.NewNotFoundError(c.Param("*")))
		}
		return c.File(path)
	}
}

// resolveFile maps a stored filename through a root-bound lookup, translating
// escapes to 400 and missing files to 404.
func (h *mediaHandler) resolveFile(lookup func(string) (string, error), name string) (string, error) {
	path, err := lookup(name)
	if err != nil {
		if errors.Is(err, media.ErrPathEscape) {
			return "", httpErrors.NewBadRequestError(err.Error())
		}
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", httpErrors.NewNotFoundError(name)
	}
	return path, nil
}

// parseRangeStart pulls the starting byte offset out of a Range header of the
// form "bytes=START-" (an end offset, if present, is ignored: the chunk size
// is fixed server-side).
func parseRangeStart(header string) (int64, error) {
	value := strings.TrimPrefix(header, "bytes=")
	if idx := strings.Index(value, "-"); idx >= 0 {
		value = value[:idx]
	}
	start, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || start < 0 {
		return 0, fmt.Errorf("invalid Range header %q", header)
	}
	return start, nil
}
