// Package server exposes the paint pipeline over HTTP.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/export"
	imgio "object-paint-agent/internal/io"
	"object-paint-agent/internal/metrics"
	"object-paint-agent/internal/pipeline"
)

const (
	serviceName = "object-paint-agent"

	// Room for multipart boundaries and form fields on top of the file itself.
	multipartOverhead = 1 << 20
)

// BuildInfo is reported by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	loader   *imgio.ImageLoader
	exporter *export.Exporter
	gatherer prometheus.Gatherer
	build    BuildInfo
	logger   logrus.FieldLogger
}

// Options are the collaborators of a Server. Exporter may be nil, in which
// case export requests are ignored; a nil Gatherer serves the default
// Prometheus registry.
type Options struct {
	Pipeline *pipeline.Pipeline
	Loader   *imgio.ImageLoader
	Exporter *export.Exporter
	Gatherer prometheus.Gatherer
	Build    BuildInfo
	Logger   logrus.FieldLogger
}

func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	loader := opts.Loader
	if loader == nil {
		loader = imgio.NewImageLoader(logger, cfg.Image.MaxSize)
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		pipeline: opts.Pipeline,
		loader:   loader,
		exporter: opts.Exporter,
		gatherer: gatherer,
		build:    opts.Build,
		logger:   logger.WithField("component", "server"),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))
	r.MaxMultipartMemory = s.cfg.Upload.MaxSize

	r.GET("/health", s.Health)
	r.GET("/version", s.Version)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	api.Use(BodyLimit(s.cfg.Upload.MaxSize + multipartOverhead))
	{
		api.POST("/segment", s.Segment)
		api.POST("/paint", s.Paint)
		api.GET("/quality-metrics", s.QualityMetrics)
	}
	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.logger.WithField("port", s.cfg.Server.Port).Info("server starting")
	return srv.ListenAndServe()
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
	})
}

func (s *Server) Version(c *gin.Context) {
	c.JSON(http.StatusOK, s.build)
}

// QualityMetrics describes the scores reported under "quality" by /paint.
func (s *Server) QualityMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.NewEvaluator().GetMetricInfo())
}
