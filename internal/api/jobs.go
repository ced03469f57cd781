package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/services"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

// jobError reports a failure that happened before or around a tool run
func (s *Server) jobError(c *gin.Context, err error) {
	var opErr *services.OperationError
	if errors.As(err, &opErr) {
		s.outcomeResponse(c, opErr.Outcome)
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Status:  string(tools.StatusFailed),
	})
}

// migrate handles POST /migrate
func (s *Server) migrate(c *gin.Context) {
	fh, f, ok := s.upload(c, "sqlite_file")
	if !ok {
		return
	}
	defer f.Close()

	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	out, err := s.service.MigrateUpload(c.Request.Context(), fh.Filename, f, conn)
	if err != nil {
		s.jobError(c, err)
		return
	}
	s.outcomeResponse(c, out)
}

// migrateServer handles POST /migrate-server
func (s *Server) migrateServer(c *gin.Context) {
	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	out, err := s.service.MigrateServerFile(c.Request.Context(), c.PostForm("server_file_path"), conn)
	if err != nil {
		if errors.Is(err, services.ErrInvalidServerPath) {
			s.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		s.jobError(c, err)
		return
	}
	s.outcomeResponse(c, out)
}

// backup handles POST /backup and streams the dump back as an attachment
func (s *Server) backup(c *gin.Context) {
	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	artifact, err := s.service.Backup(c.Request.Context(), conn)
	if err != nil {
		s.jobError(c, err)
		return
	}

	c.Header("Content-Type", "application/sql")
	c.Header("X-Backup-Checksum", artifact.Checksum)
	c.FileAttachment(artifact.Path, artifact.Name)
}

// restore handles POST /restore
func (s *Server) restore(c *gin.Context) {
	fh, f, ok := s.upload(c, "backup_file")
	if !ok {
		return
	}
	defer f.Close()

	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	out, err := s.service.RestoreUpload(c.Request.Context(), fh.Filename, f, conn)
	if err != nil {
		s.jobError(c, err)
		return
	}
	s.outcomeResponse(c, out)
}
