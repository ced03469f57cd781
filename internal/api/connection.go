package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/models"
)

// bindConnection reads the pg_* form fields; missing ones take the defaults
func bindConnection(c *gin.Context) (config.Connection, error) {
	var conn config.Connection
	if err := c.ShouldBind(&conn); err != nil {
		return conn, err
	}
	return conn.WithDefaults(), nil
}

// getConfig handles GET /config
func (s *Server) getConfig(c *gin.Context) {
	conn, err := s.service.Connection()
	if err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to load configuration: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, conn)
}

// saveConfig handles POST /save-config
func (s *Server) saveConfig(c *gin.Context) {
	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if err := s.service.SaveConnection(conn); err != nil {
		s.errorResponse(c, http.StatusInternalServerError, "Failed to save configuration: "+err.Error())
		return
	}

	s.successResponse(c, "Configuration saved")
}

// testPostgreSQL handles POST /test-postgresql
func (s *Server) testPostgreSQL(c *gin.Context) {
	conn, err := bindConnection(c)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	version, err := s.service.TestConnection(c.Request.Context(), conn)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Connection failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, models.ConnectionTestResponse{
		Success: true,
		Message: "Connection successful",
		Version: version,
	})
}
