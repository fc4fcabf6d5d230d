package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursegate/coursegate/internal/config"
	entitlementdomain "github.com/coursegate/coursegate/internal/entitlement/domain"
	obsmiddleware "github.com/coursegate/coursegate/internal/observability/logger"
	obsmetrics "github.com/coursegate/coursegate/internal/observability/metrics"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	webhookdomain "github.com/coursegate/coursegate/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.AppName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(cfg, log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	metrics        *obsmetrics.IngestMetrics
	webhookSvc     webhookdomain.Service
	subscriberSvc  subscriberdomain.Service
	entitlementSvc entitlementdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	WebhookSvc     webhookdomain.Service
	SubscriberSvc  subscriberdomain.Service
	EntitlementSvc entitlementdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		log:    p.Log.Named("http.server"),
		metrics: obsmetrics.IngestWithConfig(obsmetrics.Config{
			ServiceName: p.Cfg.AppName,
			Environment: p.Cfg.Environment,
		}),
		webhookSvc:     p.WebhookSvc,
		subscriberSvc:  p.SubscriberSvc,
		entitlementSvc: p.EntitlementSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhook := s.engine.Group("/webhook")

	webhook.POST("", s.HandleWebhook)
	webhook.POST("/hotmart", s.HandleHotmartWebhook)
	webhook.POST("/eduzz", s.HandleEduzzWebhook)
}

func (s *Server) registerAPIRoutes() {
	s.engine.POST("/validate-email", s.ValidateEmail)

	api := s.engine.Group("/api")
	api.GET("/subscribers", s.ListSubscribers)
}
