package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/dto"
	"github.com/clearfunnel/attribution-engine/internal/service"
)

// Handler wires the ingest and query services into the HTTP API.
type Handler struct {
	ingest service.Ingestor
	query  service.Querier
	router *gin.Engine
	log    *zap.Logger
}

// NewHandler creates the API handler and registers all routes.
func NewHandler(ingest service.Ingestor, query service.Querier, log *zap.Logger) *Handler {
	h := &Handler{
		ingest: ingest,
		query:  query,
		router: gin.Default(),
		log:    log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.router.POST("/events", h.ingestEvent)
	h.router.POST("/events/bulk", h.ingestEventsBulk)

	api := h.router.Group("/api")
	api.GET("/overview", h.getOverview)
	api.GET("/platforms", h.getPlatforms)
	api.GET("/timeseries", h.getTimeSeries)
	api.GET("/funnel", h.getFunnel)
	api.GET("/trust", h.getTrustScores)
	api.GET("/ml", h.getMLPredictions)
	api.GET("/bids", h.getBids)
	api.GET("/recent", h.getRecentEvents)
	api.GET("/events-by-type", h.getEventsByType)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ingestEvent handles POST /events: the event is decided synchronously and
// the decision returned.
func (h *Handler) ingestEvent(c *gin.Context) {
	var req dto.IngestEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.ingest.ProcessEvent(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}
		h.log.Error("Failed to process event",
			zap.String("event_name", req.EventName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Event processed",
		zap.String("event_id", resp.EventID),
		zap.String("action", resp.Action))

	c.JSON(http.StatusOK, resp)
}

// ingestEventsBulk handles POST /events/bulk: events are queued for
// asynchronous processing.
func (h *Handler) ingestEventsBulk(c *gin.Context) {
	var req dto.IngestEventsBulkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.ingest.PublishBulk(c.Request.Context(), req.Events)
	if err != nil {
		h.log.Error("Failed to queue bulk events",
			zap.Int("event_count", len(req.Events)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// bindRange binds the common date-range query parameters.
func (h *Handler) bindRange(c *gin.Context) (*dto.RangeRequest, bool) {
	var req dto.RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid range request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return nil, false
	}
	return &req, true
}

func (h *Handler) respond(c *gin.Context, resp interface{}, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getOverview handles GET /api/overview
func (h *Handler) getOverview(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.Overview(req)
	h.respond(c, resp, err)
}

// getPlatforms handles GET /api/platforms
func (h *Handler) getPlatforms(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.PlatformStatuses(req)
	h.respond(c, resp, err)
}

// getTimeSeries handles GET /api/timeseries
func (h *Handler) getTimeSeries(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.TimeSeries(req)
	h.respond(c, resp, err)
}

// getFunnel handles GET /api/funnel
func (h *Handler) getFunnel(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.Funnel(req)
	h.respond(c, resp, err)
}

// getTrustScores handles GET /api/trust
func (h *Handler) getTrustScores(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.TrustScores(req)
	h.respond(c, resp, err)
}

// getMLPredictions handles GET /api/ml
func (h *Handler) getMLPredictions(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.MLPredictions(req)
	h.respond(c, resp, err)
}

// getBids handles GET /api/bids
func (h *Handler) getBids(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.Bids(req)
	h.respond(c, resp, err)
}

// getRecentEvents handles GET /api/recent
func (h *Handler) getRecentEvents(c *gin.Context) {
	var req dto.RecentEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}
	c.JSON(http.StatusOK, h.query.RecentEvents(req.Limit))
}

// getEventsByType handles GET /api/events-by-type
func (h *Handler) getEventsByType(c *gin.Context) {
	req, ok := h.bindRange(c)
	if !ok {
		return
	}
	resp, err := h.query.EventsByType(req)
	h.respond(c, resp, err)
}
