package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"study-translate/internal/config"
	"study-translate/internal/models"
	"study-translate/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Translator is the part of the service the HTTP layer needs.
type Translator interface {
	Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResponse, error)
}

type Server struct {
	cfg    config.ServerConfig
	svc    Translator
	log    logrus.FieldLogger
	engine *gin.Engine
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func New(cfg config.ServerConfig, svc Translator, log logrus.FieldLogger) *Server {
	s := &Server{cfg: cfg, svc: svc, log: log}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestID(), accessLog(log), cors(cfg.CORSOrigin))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
	})

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.POST("/translate", s.handleTranslate)
	api.OPTIONS("/translate", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	s.engine = r
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTranslate(c *gin.Context) {
	var req models.TranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Details: err.Error()})
		return
	}

	resp, err := s.svc.Translate(c.Request.Context(), req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error()})
			return
		}
		s.log.WithField("request_id", c.GetString("request_id")).WithError(err).Error("translation failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Translation failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
