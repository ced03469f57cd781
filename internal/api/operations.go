package api

import (
	"context"
	"errors"
	"net/http"
	"os/exec"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AI2HU/sqlite2pg/internal/db"
	"github.com/AI2HU/sqlite2pg/internal/db/sqlite"
	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/shared"
)

const maxOperationsLimit = 500

// listOperations handles GET /operations
func (s *Server) listOperations(c *gin.Context) {
	limit := shared.ParseLimit(c, sqlite.DefaultListLimit, maxOperationsLimit)

	ops, err := s.service.History(c.Request.Context(), limit)
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to list operations: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, models.OperationsResponse{
		Success:    true,
		Operations: ops,
	})
}

// getOperation handles GET /operations/:id
func (s *Server) getOperation(c *gin.Context) {
	op, err := s.service.Operation(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.errorResponse(c, http.StatusNotFound, "Operation not found")
		return
	}
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to get operation: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, models.OperationResponse{
		Success:   true,
		Operation: op,
	})
}

// healthCheck handles GET /health. A missing tool binary or an unreachable
// journal degrades the status but never fails the request.
func (s *Server) healthCheck(c *gin.Context) {
	resp := models.HealthResponse{
		Status: "ok",
		Tools:  make(map[string]string, 3),
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	}

	for name, bin := range map[string]string{
		"pgloader": s.opts.Binaries.Pgloader,
		"pg_dump":  s.opts.Binaries.PgDump,
		"psql":     s.opts.Binaries.Psql,
	} {
		if bin == "" {
			bin = name
		}
		path, err := exec.LookPath(bin)
		if err != nil {
			resp.Tools[name] = "missing"
			resp.Status = "degraded"
			continue
		}
		resp.Tools[name] = path
	}

	switch {
	case s.opts.Journal == nil:
		resp.Journal = "disabled"
	default:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Journal.Ping(ctx); err != nil {
			resp.Journal = "unavailable: " + err.Error()
			resp.Status = "degraded"
		} else {
			resp.Journal = "ok"
		}
	}

	if s.opts.NextBackup != nil {
		if next := s.opts.NextBackup(); !next.IsZero() {
			resp.NextBackup = next.UTC().Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// getStats handles GET /stats
func (s *Server) getStats(c *gin.Context) {
	if s.opts.Stats == nil {
		c.JSON(http.StatusOK, models.StatsResponse{Success: true, Operations: []*models.OperationStats{}})
		return
	}

	result, err := s.opts.Stats.GetOperationStats(c.Request.Context())
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to get stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Success:    true,
		Operations: result,
	})
}
