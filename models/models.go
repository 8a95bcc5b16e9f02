package models

import "time"

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Report represents a single rescue case.
type Report struct {
	ID                 int64        `json:"id" db:"id"`
	TrackingID         string       `json:"tracking_id" db:"tracking_id"`
	AnimalType         string       `json:"animal_type" db:"animal_type"`
	Condition          string       `json:"condition" db:"animal_condition"`
	InjuryDescription  string       `json:"injury_description" db:"injury_description"`
	AdditionalNotes    string       `json:"additional_notes,omitempty" db:"additional_notes"`
	Latitude           float64      `json:"latitude" db:"latitude"`
	Longitude          float64      `json:"longitude" db:"longitude"`
	Address            string       `json:"address,omitempty" db:"address"`
	ImageURLs          []string     `json:"image_urls,omitempty" db:"image_urls"`
	Status             ReportStatus `json:"status" db:"status"`
	ReporterName       string       `json:"reporter_name,omitempty" db:"reporter_name"`
	ReporterPhone      string       `json:"reporter_phone,omitempty" db:"reporter_phone"`
	ReporterEmail      string       `json:"reporter_email,omitempty" db:"reporter_email"`
	AssignedOrgID      *int64       `json:"assigned_org_id,omitempty" db:"assigned_org_id"`
	AssignedOrgName    *string      `json:"assigned_org_name,omitempty" db:"assigned_org_name"`
	AssignedWorkerID   *int64       `json:"assigned_worker_id,omitempty" db:"assigned_worker_id"`
	AssignedWorkerName *string      `json:"assigned_worker_name,omitempty" db:"assigned_worker_name"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}

// Claimed reports belong to the organization that accepted them.
func (r Report) Claimed() bool {
	return r.AssignedOrgID != nil
}

// Position returns the report position as a point.
func (r Report) Position() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Organization is a rescue group able to accept reports once approved.
type Organization struct {
	ID                 int64              `json:"id" db:"id"`
	Code               string             `json:"code,omitempty" db:"code"`
	Name               string             `json:"name" db:"name"`
	Email              string             `json:"email" db:"email"`
	Phone              string             `json:"phone,omitempty" db:"phone"`
	Address            string             `json:"address,omitempty" db:"address"`
	Latitude           float64            `json:"latitude" db:"latitude"`
	Longitude          float64            `json:"longitude" db:"longitude"`
	Description        string             `json:"description,omitempty" db:"description"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	RejectionReason    string             `json:"rejection_reason,omitempty" db:"rejection_reason"`
	VerifiedBy         *int64             `json:"verified_by,omitempty" db:"verified_by"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// CanAccept reports whether the organization may claim reports.
func (o Organization) CanAccept() bool {
	return o.IsActive && o.VerificationStatus == VerificationApproved
}

// Position returns the organization location as a point.
func (o Organization) Position() Coordinates {
	return Coordinates{Latitude: o.Latitude, Longitude: o.Longitude}
}

// Worker is a field operative belonging to exactly one organization.
type Worker struct {
	ID        int64     `json:"id" db:"id"`
	OrgID     int64     `json:"org_id" db:"org_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LocationUpdate is a best-effort position ping for a case in progress.
type LocationUpdate struct {
	TrackingID string  `json:"tracking_id"`
	WorkerID   int64   `json:"worker_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// CaseEvent is the payload broadcast to case subscribers on every
// status change or location ping.
type CaseEvent struct {
	Type        string       `json:"type"`
	TrackingID  string       `json:"tracking_id"`
	Status      ReportStatus `json:"status,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// ViewPort is a lat/lon bounding box for map queries.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

// Center returns the middle point of the viewport.
func (vp ViewPort) Center() Coordinates {
	return Coordinates{
		Latitude:  (vp.LatMin + vp.LatMax) / 2,
		Longitude: (vp.LonMin + vp.LonMax) / 2,
	}
}

// MapPoint is one marker on a report map: either a single report or an
// aggregated cluster of them.
type MapPoint struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Count      int64   `json:"count"`
	TrackingID string  `json:"tracking_id,omitempty"`
	Status     string  `json:"status,omitempty"`
}
