package matchapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes a Service over HTTP.
type Handler struct {
	svc     Service
	maxRows int
	logger  *slog.Logger
}

// NewHandler wraps svc. maxRows <= 0 means unlimited.
func NewHandler(svc Service, maxRows int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, maxRows: maxRows, logger: logger.With("component", "matchapi")}
}

// Register mounts the service routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/match", h.Match)
	r.GET("/api/materials", h.Materials)
}

// Match handles POST /api/match.
func (h *Handler) Match(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}
	if h.maxRows > 0 && len(req.Rows) > h.maxRows {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Error: "too many rows"})
		return
	}

	resp, err := h.svc.Match(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("match failed", "rows", len(req.Rows), "error", err)
		c.JSON(http.StatusBadGateway, Response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Materials handles GET /api/materials.
func (h *Handler) Materials(c *gin.Context) {
	cat, err := h.svc.Catalog(c.Request.Context())
	if err != nil {
		h.logger.Error("catalog unavailable", "error", err)
		c.JSON(http.StatusBadGateway, Response{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, CatalogPayload{Version: cat.Version(), Materials: cat.All()})
}
