package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AI2HU/sqlite2pg/internal/models"
	"github.com/AI2HU/sqlite2pg/internal/sqlitecheck"
)

// upload pulls a required multipart file out of the request. On failure
// it has already written the response.
func (s *Server) upload(c *gin.Context, field string) (*multipart.FileHeader, multipart.File, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if isTooLarge(err) {
			s.errorResponse(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %d MB limit", s.opts.MaxUploadMB))
			return nil, nil, false
		}
		s.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
		return nil, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to read upload: "+err.Error())
		return nil, nil, false
	}
	return fh, f, true
}

// validateSQLite handles POST /validate-sqlite
func (s *Server) validateSQLite(c *gin.Context) {
	fh, f, ok := s.upload(c, "sqlite_file")
	if !ok {
		return
	}
	defer f.Close()

	report, err := s.service.ValidateUpload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		if errors.Is(err, sqlitecheck.ErrNotADatabase) {
			s.errorResponse(c, http.StatusBadRequest, "Invalid SQLite file: "+err.Error())
			return
		}
		s.errorResponse(c, http.StatusInternalServerError, "Validation error: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, models.ValidateResponse{
		Success:    true,
		Message:    "SQLite file validated successfully",
		TableCount: report.TableCount,
		Tables:     report.Tables,
	})
}
