// Package lifecycle owns the rescue case state machine: it validates
// transitions, arbitrates concurrent accept attempts and publishes
// every committed change.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"animal-rescue-service/apperrors"
	"animal-rescue-service/models"
	"animal-rescue-service/tracking"

	"github.com/apex/log"
)

// ReportStore is the persistence surface the engine drives. The
// conditional writes return the number of rows they committed; zero
// means the guard failed and the engine re-reads to classify why.
type ReportStore interface {
	Create(ctx context.Context, r *models.Report) error
	GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error)
	TrackingIDExists(ctx context.Context, trackingID string) (bool, error)
	Accept(ctx context.Context, trackingID string, orgID int64, orgName string, now time.Time) (int64, error)
	AssignWorker(ctx context.Context, trackingID string, workerID int64, workerName string, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, trackingID string, status models.ReportStatus, now time.Time) (int64, error)
	Available(ctx context.Context) ([]models.Report, error)
	ByOrg(ctx context.Context, orgID int64) ([]models.Report, error)
	ByWorker(ctx context.Context, workerID int64) ([]models.Report, error)
	ByReporter(ctx context.Context, email string) ([]models.Report, error)
	InViewport(ctx context.Context, vp models.ViewPort) ([]models.Report, error)
}

// OrgDirectory answers the two questions the engine asks about actors.
// Organization and worker records are owned elsewhere; the engine only
// reads these predicates.
type OrgDirectory interface {
	CanAccept(ctx context.Context, orgID int64) (bool, error)
	WorkerBelongsTo(ctx context.Context, workerID, orgID int64) (bool, error)
}

// NotificationBridge receives one event per committed mutation.
// Publication is best effort: failures are logged and never surfaced
// to the caller of the mutation.
type NotificationBridge interface {
	Publish(trackingID string, status models.ReportStatus, coords *models.Coordinates) error
}

// Engine is the lifecycle engine.
type Engine struct {
	store  ReportStore
	orgs   OrgDirectory
	bridge NotificationBridge
	genID  tracking.CodeGen
	now    func() time.Time
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(store ReportStore, orgs OrgDirectory, bridge NotificationBridge) *Engine {
	return &Engine{
		store:  store,
		orgs:   orgs,
		bridge: bridge,
		genID:  tracking.NewCode,
		now:    time.Now,
	}
}

// CreateReportParams carries the caller input for a new report.
type CreateReportParams struct {
	AnimalType        string
	Condition         string
	InjuryDescription string
	AdditionalNotes   string
	Latitude          *float64
	Longitude         *float64
	Address           string
	ImageURLs         []string
	ReporterName      string
	ReporterPhone     string
	ReporterEmail     string
}

const maxTrackingIDAttempts = 5

// CreateReport files a new case with status SUBMITTED and a fresh
// unique tracking id.
func (e *Engine) CreateReport(ctx context.Context, p CreateReportParams) (*models.Report, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	trackingID, err := e.newTrackingID(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	report := &models.Report{
		TrackingID:        trackingID,
		AnimalType:        p.AnimalType,
		Condition:         p.Condition,
		InjuryDescription: p.InjuryDescription,
		AdditionalNotes:   p.AdditionalNotes,
		Latitude:          *p.Latitude,
		Longitude:         *p.Longitude,
		Address:           p.Address,
		ImageURLs:         p.ImageURLs,
		Status:            models.StatusSubmitted,
		ReporterName:      p.ReporterName,
		ReporterPhone:     p.ReporterPhone,
		ReporterEmail:     p.ReporterEmail,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := e.store.Create(ctx, report); err != nil {
		return nil, err
	}

	coords := report.Position()
	e.publish(report.TrackingID, report.Status, &coords)
	return report, nil
}

// Accept claims an open report for an organization. At most one
// organization ever wins a given report: the store commits the claim
// conditionally and everyone whose guard failed loses the race.
func (e *Engine) Accept(ctx context.Context, trackingID string, orgID int64, orgName string) (*models.Report, error) {
	allowed, err := e.orgs.CanAccept(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Forbiddenf("organization %d is not approved and active", orgID)
	}

	rows, err := e.store.Accept(ctx, trackingID, orgID, orgName, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, e.classifyAcceptFailure(ctx, trackingID)
	}

	report, err := e.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	e.publish(report.TrackingID, report.Status, nil)
	return report, nil
}

// classifyAcceptFailure maps a failed conditional accept to the error
// taxonomy by re-reading the report.
func (e *Engine) classifyAcceptFailure(ctx context.Context, trackingID string) error {
	report, err := e.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return err
	}
	if report.Claimed() {
		// Lost the race: another organization claimed it first.
		return apperrors.Conflictf("report %s already claimed by organization %d",
			trackingID, *report.AssignedOrgID)
	}
	return apperrors.InvalidStatef("report %s is %s and can no longer be accepted",
		trackingID, report.Status)
}

// AssignWorker records the field worker on a claimed report. The worker
// must belong to the organization that accepted the case. Assignment
// does not advance the status.
func (e *Engine) AssignWorker(ctx context.Context, trackingID string, workerID int64, workerName string) (*models.Report, error) {
	report, err := e.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if !report.Claimed() {
		return nil, apperrors.InvalidStatef("report %s has no organization yet", trackingID)
	}

	belongs, err := e.orgs.WorkerBelongsTo(ctx, workerID, *report.AssignedOrgID)
	if err != nil {
		return nil, err
	}
	if !belongs {
		return nil, apperrors.Forbiddenf("worker %d does not belong to organization %d",
			workerID, *report.AssignedOrgID)
	}

	rows, err := e.store.AssignWorker(ctx, trackingID, workerID, workerName, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// The claim disappeared between the read and the write; the
		// guard refuses to attach a worker to an unclaimed report.
		return nil, apperrors.InvalidStatef("report %s has no organization yet", trackingID)
	}

	report, err = e.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	e.publish(report.TrackingID, report.Status, nil)
	return report, nil
}

// AdvanceStatus sets the report status to the given value. The source
// system accepted any enumerated value here without ordering checks
// and that leniency is kept; unknown values never reach this method
// because parsing rejects them.
func (e *Engine) AdvanceStatus(ctx context.Context, trackingID string, status models.ReportStatus) (*models.Report, error) {
	rows, err := e.store.UpdateStatus(ctx, trackingID, status, e.now().UTC())
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, apperrors.NotFoundf("report %s", trackingID)
	}

	report, err := e.store.GetByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	e.publish(report.TrackingID, report.Status, nil)
	return report, nil
}

// GetByTrackingID fetches one report. Read only.
func (e *Engine) GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error) {
	return e.store.GetByTrackingID(ctx, trackingID)
}

// Available returns the reports open for claiming. Read only.
func (e *Engine) Available(ctx context.Context) ([]models.Report, error) {
	return e.store.Available(ctx)
}

// ByOrg returns the reports claimed by an organization. Read only.
func (e *Engine) ByOrg(ctx context.Context, orgID int64) ([]models.Report, error) {
	return e.store.ByOrg(ctx, orgID)
}

// ByWorker returns the reports assigned to a worker. Read only.
func (e *Engine) ByWorker(ctx context.Context, workerID int64) ([]models.Report, error) {
	return e.store.ByWorker(ctx, workerID)
}

// ByReporter returns the reports filed under a reporter email. Read only.
func (e *Engine) ByReporter(ctx context.Context, email string) ([]models.Report, error) {
	return e.store.ByReporter(ctx, email)
}

// InViewport returns the reports inside a map bounding box. Read only.
func (e *Engine) InViewport(ctx context.Context, vp models.ViewPort) ([]models.Report, error) {
	return e.store.InViewport(ctx, vp)
}

func (e *Engine) newTrackingID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxTrackingIDAttempts; attempt++ {
		candidate := e.genID()
		exists, err := e.store.TrackingIDExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New("could not allocate a unique tracking id")
}

// publish notifies observers of a committed change. Failures are
// logged and suppressed: notification must never fail the mutation
// that triggered it.
func (e *Engine) publish(trackingID string, status models.ReportStatus, coords *models.Coordinates) {
	if e.bridge == nil {
		return
	}
	if err := e.bridge.Publish(trackingID, status, coords); err != nil {
		log.Errorf("Failed to publish case event for %s: %v", trackingID, err)
	}
}

func (p CreateReportParams) validate() error {
	if p.AnimalType == "" {
		return apperrors.Validationf("animal type is required")
	}
	if p.Condition == "" {
		return apperrors.Validationf("condition is required")
	}
	if p.InjuryDescription == "" {
		return apperrors.Validationf("injury description is required")
	}
	if p.Latitude == nil || p.Longitude == nil {
		return apperrors.Validationf("coordinates are required")
	}
	if *p.Latitude < -90 || *p.Latitude > 90 {
		return apperrors.Validationf("latitude %f out of range", *p.Latitude)
	}
	if *p.Longitude < -180 || *p.Longitude > 180 {
		return apperrors.Validationf("longitude %f out of range", *p.Longitude)
	}
	return nil
}
