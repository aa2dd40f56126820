// Package ui exposes the conversion engine over HTTP.
package ui

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/app"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/config"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
)

// Server represents the web server for the conversion service
type Server struct {
	router    *gin.Engine
	converter *app.ConverterService
	loader    *library.Loader
	ledger    ports.RunLedgerPort
	cfg       *config.Config
}

// NewServer creates a new web server instance. ledger may be nil.
func NewServer(cfg *config.Config, converter *app.ConverterService, loader *library.Loader, ledger ports.RunLedgerPort) *Server {
	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:    gin.Default(),
		converter: converter,
		loader:    loader,
		ledger:    ledger,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/templates", s.handleTemplates)
	s.router.POST("/api/convert", s.handleConvert)
	s.router.GET("/api/runs", s.handleRuns)
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Server.Port)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
