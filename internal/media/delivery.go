package media

import "github.com/labstack/echo/v4"

type Handlers interface {
	UploadImage() echo.HandlerFunc
	UploadVideo() echo.HandlerFunc
	UploadVideoHLS() echo.HandlerFunc
	GetVideoStatus() echo.HandlerFunc
	ServeImage() echo.HandlerFunc
	ServeVideoStream() echo.HandlerFunc
	ServeManifest() echo.HandlerFunc
	ServeSegment() echo.HandlerFunc
}
