// api.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 20

func (a *app) healthHandler(c *gin.Context) {
	data := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"sessions":  a.sessions.Len(),
	}
	cat, err := a.svc.Catalog(c.Request.Context())
	if err != nil {
		data["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: data, Error: err.Error()})
		return
	}
	data["catalogVersion"] = cat.Version()
	data["materials"] = cat.Len()
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// searchHandler serves the material picker: GET /api/materials/search?q=beton&limit=10.
func (a *app) searchHandler(c *gin.Context) {
	limit := defaultSearchLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	cat, err := a.svc.Catalog(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: cat.Search(c.Query("q"), limit)})
}
