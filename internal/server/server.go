package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/worker"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

const (
	maxHeaderBytes  = 1 << 20
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	db          *sqlx.DB
	redisClient *redis.Client
	logger      logger.Logger
	worker      *worker.Worker
}

func NewServer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logger logger.Logger) *Server {
	return &Server{
		echo:        echo.New(),
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.MapHandlers(ctx, s.echo); err != nil {
		return err
	}

	s.echo.Server.MaxHeaderBytes = maxHeaderBytes
	server := &http.Server{
		Addr: s.cfg.Server.Port,
		// Streaming a full chunk to a slow client takes a while, the write
		// timeout has to leave room for it.
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		if err := s.echo.StartServer(server); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("error starting server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit

	s.logger.Infof("shutting down server")
	shutdownCtx, shutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdown()
	if err := s.echo.Server.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("server shutdown: %v", err)
	}

	// Abort any in-flight encode, then wait for the consumer to drain out.
	cancel()
	s.worker.Stop()
	return nil
}
