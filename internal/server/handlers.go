package server

import (
	"context"
	"net/http"

	"github.com/clipstream/media-server/internal/encoder"
	apiMiddlewares "github.com/clipstream/media-server/internal/middleware"
	"github.com/clipstream/media-server/internal/media/ingest"
	mediaHttp "github.com/clipstream/media-server/internal/media/delivery/http"
	mediaRepository "github.com/clipstream/media-server/internal/media/repository"
	mediaUsecase "github.com/clipstream/media-server/internal/media/usecase"
	"github.com/clipstream/media-server/internal/worker"
	"github.com/clipstream/media-server/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) MapHandlers(ctx context.Context, e *echo.Echo) error {
	mRepo := mediaRepository.NewMediaRepo(s.db)
	mRedisRepo := mediaRepository.NewMediaRedisRepo(s.redisClient)
	mFileRepo := mediaRepository.NewFileRepo(s.cfg)
	if err := mFileRepo.InitDirs(); err != nil {
		return err
	}

	enc := encoder.NewFFmpegEncoder(s.cfg, s.logger)
	s.worker = worker.NewWorker(s.cfg, s.logger, mRepo, mRedisRepo, mFileRepo, enc)
	s.worker.Start(ctx)

	mediaUC := mediaUsecase.NewMediaUseCase(s.cfg, mRepo, mRedisRepo, mFileRepo, s.worker, s.logger)
	ingestor := ingest.NewIngestor(s.cfg, s.logger)
	mediaHandlers := mediaHttp.NewMediaHandler(s.cfg, mediaUC, ingestor, mFileRepo, s.logger)

	mw := apiMiddlewares.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)

	e.Use(middleware.RequestID())
	e.Use(mw.RequestLoggerMiddleware)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	mediasGroup := v1.Group("/medias")
	staticGroup := e.Group("/static")

	mediaHttp.MapMediaRoutes(mediasGroup, mediaHandlers)
	mediaHttp.MapStaticRoutes(staticGroup, mediaHandlers)

	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
