package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit parses the limit query parameter. Missing or invalid values
// return def; values above max are clamped.
func ParseLimit(c *gin.Context, def, max int) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return def
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
