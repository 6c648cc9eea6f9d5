package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tlemarchand/shelfer/internal/database"
)

// Server represents the API server
type Server struct {
	router *gin.Engine
	db     *gorm.DB
}

// NewServer creates a new API server instance backed by the catalog store.
func NewServer() *Server {
	router := gin.Default()
	router.Use(requestIDMiddleware())
	router.Use(errorHandlerMiddleware())
	router.Use(cors.Default())

	s := &Server{
		router: router,
		db:     database.Get(),
	}

	s.setupRoutes()

	return s
}

// Run starts the API server on the specified port
func (s *Server) Run(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Catalog endpoints
		v1.GET("/items", s.listItems)
		v1.GET("/items/:id", s.getItem)
		v1.GET("/categories", s.listCategories)

		// Run history
		v1.GET("/runs", s.listRuns)
		v1.GET("/crawls", s.listCrawlLogs)

		// Actions
		v1.POST("/organize", s.triggerOrganize)
	}
}
