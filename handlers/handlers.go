// Package handlers contains the HTTP surface of the rescue service.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"animal-rescue-service/apperrors"
	"animal-rescue-service/database"
	"animal-rescue-service/lifecycle"
	"animal-rescue-service/models"
	"animal-rescue-service/version"
	ws "animal-rescue-service/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

const serviceName = "animal-rescue-service"

// Handlers contains all HTTP handlers
type Handlers struct {
	engine *lifecycle.Engine
	orgs   *database.OrganizationService
	hub    *ws.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(engine *lifecycle.Engine, orgs *database.OrganizationService, hub *ws.Hub) *Handlers {
	return &Handlers{
		engine: engine,
		orgs:   orgs,
		hub:    hub,
	}
}

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now
		// In production, you should implement proper origin checking
		return true
	},
}

// ListenCases handles WebSocket connections for case event listening.
// An optional tracking_id query parameter narrows the stream to one
// case; without it the client receives every event.
func (h *Handlers) ListenCases(c *gin.Context) {
	trackingID := c.Query("tracking_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, trackingID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	log.Infof("WebSocket connection established (tracking_id=%q)", trackingID)
}

// PostLocationRequest is a position ping from a dispatched team.
type PostLocationRequest struct {
	WorkerID  int64    `json:"worker_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// PostLocation handles POST /api/v3/cases/:trackingId/location. Pings
// are broadcast to case listeners and never persisted.
func (h *Handlers) PostLocation(c *gin.Context) {
	trackingID := c.Param("trackingId")

	var req PostLocationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	// The ping must reference a real case.
	if _, err := h.engine.GetByTrackingID(c.Request.Context(), trackingID); err != nil {
		writeError(c, err)
		return
	}

	h.hub.BroadcastLocation(models.LocationUpdate{
		TrackingID: trackingID,
		WorkerID:   req.WorkerID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
	})

	c.JSON(http.StatusOK, gin.H{"status": "broadcast"})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"service":           serviceName,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"connected_clients": h.hub.ClientCount(),
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get(serviceName))
}

// writeError maps domain errors to HTTP statuses. Anything outside the
// error taxonomy is a 500 and the detail stays in the logs.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Errorf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
