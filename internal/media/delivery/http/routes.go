package http

import (
	"github.com/clipstream/media-server/internal/media"
	"github.com/labstack/echo/v4"
)

func MapMediaRoutes(mediaGroup *echo.Group, h media.Handlers) {
	mediaGroup.POST("/upload-image", h.UploadImage())
	mediaGroup.POST("/upload-video", h.UploadVideo())
	mediaGroup.POST("/upload-video-hls", h.UploadVideoHLS())
	mediaGroup.GET("/video-status/:id", h.GetVideoStatus())
}

func MapStaticRoutes(staticGroup *echo.Group, h media.Handlers) {
	staticGroup.GET("/image/:name", h.ServeImage())
	staticGroup.GET("/video-stream/:name", h.ServeVideoStream())
	staticGroup.GET("/video-hls/:id/master.m3u8", h.ServeManifest())
	staticGroup.GET("/video-hls/:id/*", h.ServeSegment())
}
