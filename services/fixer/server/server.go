// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the fixer over HTTP.
//
// The API is a thin shell around the fix service: one fix run at a time,
// JSON in, FixResult JSON out. Fix execution is behind the FixRunner
// interface so the transport can be tested without a PHPStan binary.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/fixers"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/telemetry"
)

const serviceName = "phpstan-fixer"

// FixRequest is the POST /v1/fix request body.
type FixRequest struct {
	// Paths are the files or directories to analyze and fix.
	Paths []string `json:"paths" binding:"required,min=1,dive,required"`

	// Level is the PHPStan rule level (0-9).
	Level int `json:"level" binding:"min=0,max=9"`

	// Smart enables multi-pass convergence with type analysis.
	Smart bool `json:"smart"`

	// DryRun collects diffs without writing any file.
	DryRun bool `json:"dry_run"`

	// PHPVersion is the target PHP version, e.g. "8.3".
	PHPVersion string `json:"php_version" binding:"omitempty,phpversion"`
}

// FixRunner executes one fix run. Implementations decide how the request
// maps onto a project root, analyzer binary, and fixer registry.
type FixRunner interface {
	Fix(ctx context.Context, req FixRequest) (*fixer.FixResult, error)
}

// FixerInfo describes one registered fixer in the /v1/fixers listing.
type FixerInfo struct {
	Priority   int      `json:"priority"`
	Name       string   `json:"name"`
	Kinds      []string `json:"kinds"`
	MinVersion string   `json:"min_php_version,omitempty"`
}

// Config holds server configuration.
type Config struct {
	// Port is the HTTP listen port. Default 8095.
	Port int

	// Version is reported by /v1/health.
	Version string

	// Mode sets the gin mode; default gin.ReleaseMode.
	Mode string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP front end.
//
// # Thread Safety
//
// Handlers are safe for concurrent use. Fix runs are serialized: a second
// POST /v1/fix while one is in flight gets 409.
type Server struct {
	cfg      Config
	runner   FixRunner
	registry *fixers.Registry
	router   *gin.Engine
	logger   *slog.Logger

	// busy guards the single-run execution model.
	busy sync.Mutex
}

var phpVersionRe = regexp.MustCompile(`^\d+\.\d+$`)

// registerValidators installs custom binding validators. Safe to call more
// than once; gin keeps one validator engine per process.
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("phpversion", func(fl validator.FieldLevel) bool {
			return phpVersionRe.MatchString(fl.Field().String())
		})
	}
}

// New builds a server around a fix runner and the fixer registry.
func New(cfg Config, runner FixRunner, registry *fixers.Registry) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8095
	}
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gin.SetMode(cfg.Mode)
	registerValidators()

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		registry: registry,
		logger:   cfg.Logger.With("component", "server"),
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the underlying gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting fixer server", "port", s.cfg.Port)
	return s.router.Run(addr)
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	v1 := r.Group("/v1")
	v1.POST("/fix", s.handleFix)
	v1.GET("/fixers", s.handleFixers)
	v1.GET("/health", s.handleHealth)

	if h := telemetry.MetricsHandler(); h != nil {
		r.GET("/metrics", gin.WrapH(h))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return r
}

func (s *Server) handleFix(c *gin.Context) {
	var req FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a fix run is already in progress"})
		return
	}
	defer s.busy.Unlock()

	result, err := s.runner.Fix(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("fix run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleFixers(c *gin.Context) {
	list := s.registry.List()
	infos := make([]FixerInfo, 0, len(list))
	for i, f := range list {
		infos = append(infos, FixerInfo{
			Priority:   i + 1,
			Name:       f.Name(),
			Kinds:      f.Kinds(),
			MinVersion: fixers.VersionFloor(f.Name()),
		})
	}
	c.JSON(http.StatusOK, gin.H{"fixers": infos})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}
