// Object Paint Agent
// Author: Ervins Strauhmanis
// License: MIT
// Version: 1.0.0 - Object Recoloring + Shadow Masks

// Command server serves the object paint HTTP API.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/cache"
	"object-paint-agent/internal/config"
	"object-paint-agent/internal/export"
	"object-paint-agent/internal/pipeline"
	"object-paint-agent/internal/server"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := initLogger(cfg.Log)
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("starting object-paint-agent server")

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		logger.WithError(err).Fatal("failed to create data directory")
	}

	ctx := context.Background()
	if cfg.Cache.Backend == "redis" {
		rc := cache.NewRedisCache(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis connection failed, mask lookups will miss")
		} else {
			logger.Info("redis connected successfully")
		}
		_ = rc.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p, err := pipeline.NewFromConfig(cfg, reg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up pipeline")
	}

	sink, err := export.NewSink(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up export sink")
	}

	gin.SetMode(cfg.Server.Mode)
	srv := server.New(cfg, server.Options{
		Pipeline: p,
		Exporter: export.NewExporter(sink, logger),
		Gatherer: reg,
		Build:    server.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Logger:   logger,
	})
	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}

func initLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
