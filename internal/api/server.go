package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AI2HU/sqlite2pg/internal/db"
	"github.com/AI2HU/sqlite2pg/internal/logger"
	"github.com/AI2HU/sqlite2pg/internal/metrics"
	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/services"
	"github.com/AI2HU/sqlite2pg/internal/stats"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

// multipartMemory is how much of a multipart body gin keeps in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// Options configures the HTTP surface
type Options struct {
	CORSOrigin    string
	MaxUploadMB   int
	JobsPerMinute int
	Binaries      tools.Binaries
	Journal       db.Journal
	Metrics       *metrics.Metrics
	Stats         *stats.Service
	// NextBackup reports the next scheduled backup; zero when idle.
	NextBackup    func() time.Time
}

// Server represents the API server
type Server struct {
	router    *gin.Engine
	service   *services.OperationService
	opts      Options
	limiter   *rate.Limiter
	startTime time.Time
}

// NewServer creates a new API server
func NewServer(service *services.OperationService, opts Options) *Server {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	if gin.Mode() != gin.TestMode && !logger.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = multipartMemory

	s := &Server{
		router:    router,
		service:   service,
		opts:      opts,
		startTime: time.Now(),
	}
	if opts.JobsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.JobsPerMinute)), opts.JobsPerMinute)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
	s.router.Use(corsMiddleware(s.opts.CORSOrigin))
	s.router.Use(bodyLimit(int64(s.opts.MaxUploadMB) << 20))
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.index)
	s.router.GET("/config", s.getConfig)
	s.router.POST("/save-config", s.saveConfig)
	s.router.POST("/test-postgresql", s.testPostgreSQL)
	s.router.POST("/validate-sqlite", s.validateSQLite)

	jobs := s.router.Group("/")
	jobs.Use(s.rateLimit())
	{
		jobs.POST("/migrate", s.migrate)
		jobs.POST("/migrate-server", s.migrateServer)
		jobs.POST("/backup", s.backup)
		jobs.POST("/restore", s.restore)
	}

	s.router.GET("/operations", s.listOperations)
	s.router.GET("/operations/:id", s.getOperation)
	s.router.GET("/stats", s.getStats)
	s.router.GET("/health", s.healthCheck)
	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
}

// Handler exposes the router for an http.Server or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// errorResponse sends a failure envelope
func (s *Server) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// successResponse sends a success envelope with a message
func (s *Server) successResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: message,
	})
}

// outcomeResponse maps a tool outcome onto the wire: 200 on success, 500
// with the status otherwise.
func (s *Server) outcomeResponse(c *gin.Context, out *tools.Outcome) {
	if out.Succeeded() {
		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Message: out.Message,
			Status:  string(out.Status),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error:   out.Message,
		Status:  string(out.Status),
	})
}
