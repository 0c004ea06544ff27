package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"partscope/internal/auth"
	"partscope/internal/inventory"
	"partscope/internal/models"
	"partscope/internal/store"
)

// Server wires the HTTP surface of the inspection backend.
type Server struct {
	router      *gin.Engine
	svc         *inventory.Service
	predictions *store.PredictionStore
	users       *store.UserStore
	auth        *auth.Manager
	hub         *Hub
	log         *logrus.Logger
	imagesDir   string
	staticDir   string
}

// Config carries the server's collaborators. Auth may be nil, which leaves
// every route open; StaticDir may be empty, which disables SPA serving.
type Config struct {
	Service     *inventory.Service
	Predictions *store.PredictionStore
	Users       *store.UserStore
	Auth        *auth.Manager
	Hub         *Hub
	Log         *logrus.Logger
	ImagesDir   string
	StaticDir   string
}

var registerValidationsOnce sync.Once

// NewServer creates the API server and registers all routes.
func NewServer(cfg Config) *Server {
	registerValidationsOnce.Do(registerValidations)

	s := &Server{
		router:      gin.Default(),
		svc:         cfg.Service,
		predictions: cfg.Predictions,
		users:       cfg.Users,
		auth:        cfg.Auth,
		hub:         cfg.Hub,
		log:         cfg.Log,
		imagesDir:   cfg.ImagesDir,
		staticDir:   cfg.StaticDir,
	}
	if s.log == nil {
		s.log = logrus.New()
	}

	s.router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	s.setupRoutes()
	return s
}

// registerValidations installs the custom status validator used by the
// request binding tags. A blank value passes; the patch semantics ignore it.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			value := strings.TrimSpace(fl.Field().String())
			return value == "" || models.ValidStatus(value)
		})
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)
	s.router.POST("/api/predict", s.handlePredict)
	s.router.GET("/api/inventory", s.handleListInventory)
	s.router.POST("/api/inventory/ai-insights", s.handleInsights)
	s.router.GET("/api/predictions", s.handlePredictionHistory)

	if s.hub != nil {
		s.router.GET("/ws", s.hub.handleWebSocket)
	}

	mutating := s.router.Group("/api")
	if s.auth != nil {
		s.router.POST("/api/auth/token", s.handleToken)
		mutating.Use(s.auth.Middleware())
	}
	mutating.POST("/inventory/upload", s.handleUpload)
	mutating.POST("/inventory/classify", s.handleClassify)
	mutating.PATCH("/inventory/:id", s.handleUpdate)
	mutating.POST("/inventory/batch-update", s.handleBatchUpdate)
	mutating.POST("/inventory/batch-delete", s.handleBatchDelete)
	mutating.DELETE("/inventory/:id", s.handleDelete)

	if s.imagesDir != "" {
		s.router.Static("/inventory/images", s.imagesDir)
	}
	if s.staticDir != "" {
		s.router.NoRoute(s.handleSPA)
	}
}

// Router returns the Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleSPA serves the built frontend with an index.html fallback so
// client-side routes resolve after a full reload.
func (s *Server) handleSPA(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	path := filepath.Join(s.staticDir, filepath.Clean("/"+c.Request.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.File(path)
		return
	}
	c.File(filepath.Join(s.staticDir, "index.html"))
}
