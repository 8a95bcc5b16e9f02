package handlers

import (
	"net/http"
	"strconv"
	"time"

	"animal-rescue-service/geoindex"
	"animal-rescue-service/models"
	"animal-rescue-service/tracking"

	"github.com/gin-gonic/gin"
)

// RegisterOrgRequest is the payload for registering an organization.
// New organizations start pending review and cannot accept reports
// until an admin approves them.
type RegisterOrgRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description"`
}

// RegisterOrg handles POST /api/v3/orgs
func (h *Handlers) RegisterOrg(c *gin.Context) {
	var req RegisterOrgRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
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

	now := time.Now().UTC()
	org := &models.Organization{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.orgs.Create(c.Request.Context(), org); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// ListOrgs handles GET /api/v3/orgs
func (h *Handlers) ListOrgs(c *gin.Context) {
	orgs, err := h.orgs.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "count": len(orgs)})
}

// GetOrg handles GET /api/v3/orgs/:id
func (h *Handlers) GetOrg(c *gin.Context) {
	id, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}
	org, err := h.orgs.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// NearbyOrgs handles GET /api/v3/orgs/nearby. Only approved active
// organizations are matched; the radius is in coordinate degrees.
func (h *Handlers) NearbyOrgs(c *gin.Context) {
	center, radius, ok := parseNearbyQuery(c)
	if !ok {
		return
	}

	active, err := h.orgs.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	orgs := geoindex.Nearby(active, center, radius, func(o models.Organization) bool {
		return o.CanAccept()
	})
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "count": len(orgs)})
}

// PendingOrgs handles GET /api/v3/orgs/pending (admin only)
func (h *Handlers) PendingOrgs(c *gin.Context) {
	orgs, err := h.orgs.ListPending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs, "count": len(orgs)})
}

// ApproveOrg handles PUT /api/v3/orgs/:id/approve (admin only)
func (h *Handlers) ApproveOrg(c *gin.Context) {
	id, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}

	org, err := h.orgs.Approve(c.Request.Context(), id, c.GetInt64("admin_id"),
		tracking.OrgCode, time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// RejectOrgRequest carries the reason shown to the organization.
type RejectOrgRequest struct {
	Reason string `json:"reason"`
}

// RejectOrg handles PUT /api/v3/orgs/:id/reject (admin only)
func (h *Handlers) RejectOrg(c *gin.Context) {
	id, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}

	var req RejectOrgRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	org, err := h.orgs.Reject(c.Request.Context(), id, c.GetInt64("admin_id"),
		req.Reason, time.Now().UTC())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// DeactivateOrg handles PUT /api/v3/orgs/:id/deactivate (admin only)
func (h *Handlers) DeactivateOrg(c *gin.Context) {
	id, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.orgs.Deactivate(c.Request.Context(), id, time.Now().UTC()); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// AddWorkerRequest is the payload for adding a field worker.
type AddWorkerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AddWorker handles POST /api/v3/orgs/:id/workers
func (h *Handlers) AddWorker(c *gin.Context) {
	orgID, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}

	var req AddWorkerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	worker := &models.Worker{
		OrgID:     orgID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.orgs.AddWorker(c.Request.Context(), worker); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, worker)
}

// ListWorkers handles GET /api/v3/orgs/:id/workers
func (h *Handlers) ListWorkers(c *gin.Context) {
	orgID, ok := requireInt64Param(c, "id")
	if !ok {
		return
	}

	if _, err := h.orgs.GetByID(c.Request.Context(), orgID); err != nil {
		writeError(c, err)
		return
	}

	workers, err := h.orgs.Workers(c.Request.Context(), orgID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers, "count": len(workers)})
}

func requireInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + name + "' parameter. Must be a positive integer."})
		return 0, false
	}
	return v, true
}
