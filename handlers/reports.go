package handlers

import (
	"net/http"
	"strconv"

	"animal-rescue-service/geoindex"
	"animal-rescue-service/lifecycle"
	"animal-rescue-service/mapaggr"
	"animal-rescue-service/models"

	"github.com/gin-gonic/gin"
)

// CreateReportRequest is the payload for filing a new rescue report.
type CreateReportRequest struct {
	AnimalType        string   `json:"animal_type"`
	Condition         string   `json:"condition"`
	InjuryDescription string   `json:"injury_description"`
	AdditionalNotes   string   `json:"additional_notes"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Address           string   `json:"address"`
	ImageURLs         []string `json:"image_urls"`
	ReporterName      string   `json:"reporter_name"`
	ReporterPhone     string   `json:"reporter_phone"`
	ReporterEmail     string   `json:"reporter_email"`
}

// CreateReport handles POST /api/v3/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	report, err := h.engine.CreateReport(c.Request.Context(), lifecycle.CreateReportParams{
		AnimalType:        req.AnimalType,
		Condition:         req.Condition,
		InjuryDescription: req.InjuryDescription,
		AdditionalNotes:   req.AdditionalNotes,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Address:           req.Address,
		ImageURLs:         req.ImageURLs,
		ReporterName:      req.ReporterName,
		ReporterPhone:     req.ReporterPhone,
		ReporterEmail:     req.ReporterEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// TrackReport handles GET /api/v3/reports/track/:trackingId
func (h *Handlers) TrackReport(c *gin.Context) {
	report, err := h.engine.GetByTrackingID(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AvailableReports handles GET /api/v3/reports/available
func (h *Handlers) AvailableReports(c *gin.Context) {
	reports, err := h.engine.Available(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ReportsByOrg handles GET /api/v3/reports/by-org
func (h *Handlers) ReportsByOrg(c *gin.Context) {
	orgID, ok := requireInt64Query(c, "org_id")
	if !ok {
		return
	}
	reports, err := h.engine.ByOrg(c.Request.Context(), orgID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ReportsByWorker handles GET /api/v3/reports/by-worker
func (h *Handlers) ReportsByWorker(c *gin.Context) {
	workerID, ok := requireInt64Query(c, "worker_id")
	if !ok {
		return
	}
	reports, err := h.engine.ByWorker(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ReportsByReporter handles GET /api/v3/reports/by-reporter
func (h *Handlers) ReportsByReporter(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'email' parameter"})
		return
	}
	reports, err := h.engine.ByReporter(c.Request.Context(), email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// NearbyReports handles GET /api/v3/reports/nearby. The radius is in
// coordinate degrees and the scan covers open reports only.
func (h *Handlers) NearbyReports(c *gin.Context) {
	center, radius, ok := parseNearbyQuery(c)
	if !ok {
		return
	}

	open, err := h.engine.Available(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	reports := geoindex.Nearby(open, center, radius, nil)
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ReportMap handles GET /api/v3/reports/map. Reports inside the
// viewport come back clustered for rendering.
func (h *Handlers) ReportMap(c *gin.Context) {
	vp, ok := parseViewPortQuery(c)
	if !ok {
		return
	}

	reports, err := h.engine.InViewport(c.Request.Context(), vp)
	if err != nil {
		writeError(c, err)
		return
	}

	aggr := mapaggr.New(vp)
	for _, r := range reports {
		aggr.AddPoint(models.MapPoint{
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Count:      1,
			TrackingID: r.TrackingID,
			Status:     string(r.Status),
		})
	}

	points := aggr.ToArray()
	c.JSON(http.StatusOK, gin.H{"points": points, "count": len(points)})
}

// AcceptReportRequest identifies the claiming organization.
type AcceptReportRequest struct {
	OrgID int64 `json:"org_id"`
}

// AcceptReport handles POST /api/v3/reports/:trackingId/accept
func (h *Handlers) AcceptReport(c *gin.Context) {
	var req AcceptReportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OrgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org_id is required"})
		return
	}

	org, err := h.orgs.GetByID(c.Request.Context(), req.OrgID)
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.engine.Accept(c.Request.Context(), c.Param("trackingId"), org.ID, org.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AssignWorkerRequest identifies the field worker to dispatch.
type AssignWorkerRequest struct {
	WorkerID int64 `json:"worker_id"`
}

// AssignWorker handles POST /api/v3/reports/:trackingId/assign-worker
func (h *Handlers) AssignWorker(c *gin.Context) {
	var req AssignWorkerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.WorkerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "worker_id is required"})
		return
	}

	worker, err := h.orgs.GetWorker(c.Request.Context(), req.WorkerID)
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.engine.AssignWorker(c.Request.Context(), c.Param("trackingId"), worker.ID, worker.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateStatusRequest carries the new lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /api/v3/reports/:trackingId/status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	status, err := models.ParseReportStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.engine.AdvanceStatus(c.Request.Context(), c.Param("trackingId"), status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func requireInt64Query(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing '" + name + "' parameter"})
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + name + "' parameter. Must be a positive integer."})
		return 0, false
	}
	return v, true
}

func parseNearbyQuery(c *gin.Context) (models.Coordinates, float64, bool) {
	latStr := c.Query("latitude")
	if latStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'latitude' parameter"})
		return models.Coordinates{}, 0, false
	}
	lngStr := c.Query("longitude")
	if lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'longitude' parameter"})
		return models.Coordinates{}, 0, false
	}

	latitude, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'latitude' parameter. Must be a valid number."})
		return models.Coordinates{}, 0, false
	}
	longitude, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'longitude' parameter. Must be a valid number."})
		return models.Coordinates{}, 0, false
	}

	radius := 1.0
	if radiusStr := c.DefaultQuery("radius", "1.0"); radiusStr != "" {
		parsed, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'radius' parameter. Must be a positive number."})
			return models.Coordinates{}, 0, false
		}
		radius = parsed
	}

	return models.Coordinates{Latitude: latitude, Longitude: longitude}, radius, true
}

func parseViewPortQuery(c *gin.Context) (models.ViewPort, bool) {
	var vp models.ViewPort
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"latmin", &vp.LatMin},
		{"lonmin", &vp.LonMin},
		{"latmax", &vp.LatMax},
		{"lonmax", &vp.LonMax},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing '" + p.name + "' parameter"})
			return models.ViewPort{}, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + p.name + "' parameter. Must be a valid number."})
			return models.ViewPort{}, false
		}
		*p.dst = v
	}
	if vp.LatMin >= vp.LatMax || vp.LonMin >= vp.LonMax {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Viewport min bounds must be below max bounds"})
		return models.ViewPort{}, false
	}
	return vp, true
}
