package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"animal-rescue-service/apperrors"
	"animal-rescue-service/models"
)

// memStore is an in-memory ReportStore with the same conditional-write
// semantics as the MySQL implementation.
type memStore struct {
	mu      sync.Mutex
	reports map[string]*models.Report
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[string]*models.Report)}
}

func (m *memStore) Create(ctx context.Context, r *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.ID = int64(len(m.reports) + 1)
	m.reports[r.TrackingID] = &cp
	r.ID = cp.ID
	return nil
}

func (m *memStore) GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[trackingID]
	if !ok {
		return nil, apperrors.NotFoundf("report %s", trackingID)
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) TrackingIDExists(ctx context.Context, trackingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.reports[trackingID]
	return ok, nil
}

func (m *memStore) Accept(ctx context.Context, trackingID string, orgID int64, orgName string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[trackingID]
	if !ok || r.AssignedOrgID != nil || !r.Status.Claimable() {
		return 0, nil
	}
	r.AssignedOrgID = &orgID
	r.AssignedOrgName = &orgName
	r.Status = models.StatusHelpOnTheWay
	r.UpdatedAt = now
	return 1, nil
}

func (m *memStore) AssignWorker(ctx context.Context, trackingID string, workerID int64, workerName string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[trackingID]
	if !ok || r.AssignedOrgID == nil {
		return 0, nil
	}
	r.AssignedWorkerID = &workerID
	r.AssignedWorkerName = &workerName
	r.UpdatedAt = now
	return 1, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, trackingID string, status models.ReportStatus, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[trackingID]
	if !ok {
		return 0, nil
	}
	r.Status = status
	r.UpdatedAt = now
	return 1, nil
}

func (m *memStore) Available(ctx context.Context) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.Status.Claimable() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ByOrg(ctx context.Context, orgID int64) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.AssignedOrgID != nil && *r.AssignedOrgID == orgID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ByWorker(ctx context.Context, workerID int64) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.AssignedWorkerID != nil && *r.AssignedWorkerID == workerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) ByReporter(ctx context.Context, email string) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.ReporterEmail == email {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) InViewport(ctx context.Context, vp models.ViewPort) ([]models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Report, 0)
	for _, r := range m.reports {
		if r.Latitude >= vp.LatMin && r.Latitude <= vp.LatMax &&
			r.Longitude >= vp.LonMin && r.Longitude <= vp.LonMax {
			out = append(out, *r)
		}
	}
	return out, nil
}

// memOrgs is a fixed OrgDirectory for tests.
type memOrgs struct {
	acceptable map[int64]bool
	workers    map[int64]int64 // worker id -> org id
}

func (m *memOrgs) CanAccept(ctx context.Context, orgID int64) (bool, error) {
	allowed, ok := m.acceptable[orgID]
	if !ok {
		return false, apperrors.NotFoundf("organization %d", orgID)
	}
	return allowed, nil
}

func (m *memOrgs) WorkerBelongsTo(ctx context.Context, workerID, orgID int64) (bool, error) {
	owner, ok := m.workers[workerID]
	if !ok {
		return false, apperrors.NotFoundf("worker %d", workerID)
	}
	return owner == orgID, nil
}

// recordingBridge captures publications in order.
type recordingBridge struct {
	mu     sync.Mutex
	events []models.CaseEvent
}

func (b *recordingBridge) Publish(trackingID string, status models.ReportStatus, coords *models.Coordinates) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, models.CaseEvent{
		Type:        "status",
		TrackingID:  trackingID,
		Status:      status,
		Coordinates: coords,
	})
	return nil
}

func (b *recordingBridge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func ptr(f float64) *float64 { return &f }

func testEngine(orgs OrgDirectory) (*Engine, *memStore, *recordingBridge) {
	store := newMemStore()
	bridge := &recordingBridge{}
	e := NewEngine(store, orgs, bridge)
	return e, store, bridge
}

func defaultOrgs() *memOrgs {
	return &memOrgs{
		acceptable: map[int64]bool{42: true, 99: true, 7: false},
		workers:    map[int64]int64{301: 42, 400: 99},
	}
}

func validParams() CreateReportParams {
	return CreateReportParams{
		AnimalType:        "dog",
		Condition:         "injured",
		InjuryDescription: "hit by a vehicle near the market",
		Latitude:          ptr(18.52),
		Longitude:         ptr(73.85),
		Address:           "FC Road, Pune",
		ReporterName:      "Asha",
		ReporterPhone:     "+91-9800000000",
		ReporterEmail:     "asha@example.com",
	}
}

func TestCreateReport(t *testing.T) {
	e, _, bridge := testEngine(defaultOrgs())

	report, err := e.CreateReport(context.Background(), validParams())
	if err != nil {
		t.Fatalf("CreateReport: unexpected error: %v", err)
	}
	if report.Status != models.StatusSubmitted {
		t.Errorf("new report status = %s, want %s", report.Status, models.StatusSubmitted)
	}
	if len(report.TrackingID) != len("PR-XXXXXXXX") || report.TrackingID[:3] != "PR-" {
		t.Errorf("tracking id %q has the wrong shape", report.TrackingID)
	}
	if report.AssignedOrgID != nil {
		t.Errorf("new report must be unclaimed")
	}
	if bridge.count() != 1 {
		t.Errorf("expected 1 published event after create, got %d", bridge.count())
	}
}

func TestCreateReportValidation(t *testing.T) {
	e, _, bridge := testEngine(defaultOrgs())

	testCases := []struct {
		name   string
		mutate func(*CreateReportParams)
	}{
		{"Missing animal type", func(p *CreateReportParams) { p.AnimalType = "" }},
		{"Missing condition", func(p *CreateReportParams) { p.Condition = "" }},
		{"Missing injury description", func(p *CreateReportParams) { p.InjuryDescription = "" }},
		{"Missing coordinates", func(p *CreateReportParams) { p.Latitude = nil }},
		{"Latitude out of range", func(p *CreateReportParams) { p.Latitude = ptr(91) }},
		{"Longitude out of range", func(p *CreateReportParams) { p.Longitude = ptr(-181) }},
	}

	for _, testCase := range testCases {
		p := validParams()
		testCase.mutate(&p)
		if _, err := e.CreateReport(context.Background(), p); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", testCase.name, err)
		}
	}
	if bridge.count() != 0 {
		t.Errorf("rejected creates must not publish, got %d events", bridge.count())
	}
}

func TestTrackingIDCollisionRetries(t *testing.T) {
	e, store, _ := testEngine(defaultOrgs())

	// Occupy the id that the stubbed generator produces first.
	ids := []string{"PR-TAKEN001", "PR-FRESH002"}
	i := 0
	e.genID = func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	store.reports["PR-TAKEN001"] = &models.Report{TrackingID: "PR-TAKEN001", Status: models.StatusSubmitted}

	report, err := e.CreateReport(context.Background(), validParams())
	if err != nil {
		t.Fatalf("CreateReport: unexpected error: %v", err)
	}
	if report.TrackingID != "PR-FRESH002" {
		t.Errorf("tracking id = %s, want the regenerated PR-FRESH002", report.TrackingID)
	}
}

func TestAcceptHappyPath(t *testing.T) {
	e, _, bridge := testEngine(defaultOrgs())

	created, err := e.CreateReport(context.Background(), validParams())
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	report, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare")
	if err != nil {
		t.Fatalf("Accept: unexpected error: %v", err)
	}
	if report.Status != models.StatusHelpOnTheWay {
		t.Errorf("status after accept = %s, want %s", report.Status, models.StatusHelpOnTheWay)
	}
	if report.AssignedOrgID == nil || *report.AssignedOrgID != 42 {
		t.Errorf("assigned org = %v, want 42", report.AssignedOrgID)
	}
	if report.AssignedOrgName == nil || *report.AssignedOrgName != "Pune Welfare" {
		t.Errorf("assigned org name = %v, want Pune Welfare", report.AssignedOrgName)
	}
	if bridge.count() != 2 {
		t.Errorf("expected 2 published events (create, accept), got %d", bridge.count())
	}
}

func TestAcceptSecondOrgConflicts(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())

	created, _ := e.CreateReport(context.Background(), validParams())
	if _, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err := e.Accept(context.Background(), created.TrackingID, 99, "Late Arrivals")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("second accept: expected conflict, got %v", err)
	}
}

func TestAcceptRequiresApprovedActiveOrg(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())

	created, _ := e.CreateReport(context.Background(), validParams())

	if _, err := e.Accept(context.Background(), created.TrackingID, 7, "Rejected Org"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("accept by unapproved org: expected forbidden, got %v", err)
	}
	if _, err := e.Accept(context.Background(), created.TrackingID, 12345, "Ghost Org"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("accept by unknown org: expected not found, got %v", err)
	}
}

func TestAcceptAfterLifecycleMovedOn(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())

	created, _ := e.CreateReport(context.Background(), validParams())
	if _, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.AdvanceStatus(context.Background(), created.TrackingID, models.StatusAnimalRescued); err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, err := e.Accept(context.Background(), created.TrackingID, 99, "Late Arrivals")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("accept of rescued case: expected invalid state, got %v", err)
	}
}

func TestAcceptAfterStatusJumpWithoutClaim(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())

	// The lenient status update can move an unclaimed report to
	// HELP_ON_THE_WAY with no organization attached. A later accept
	// must see an invalid state, not a claim conflict.
	created, _ := e.CreateReport(context.Background(), validParams())
	if _, err := e.AdvanceStatus(context.Background(), created.TrackingID, models.StatusHelpOnTheWay); err != nil {
		t.Fatalf("advance: %v", err)
	}

	_, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("accept of unclaimed HELP_ON_THE_WAY case: expected invalid state, got %v", err)
	}
}

func TestAcceptUnknownReport(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())
	if _, err := e.Accept(context.Background(), "PR-MISSING1", 42, "Pune Welfare"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("accept of missing report: expected not found, got %v", err)
	}
}

// The contested path: many organizations race for one report and
// exactly one may win.
func TestAcceptConcurrentSingleWinner(t *testing.T) {
	orgs := &memOrgs{acceptable: map[int64]bool{}, workers: map[int64]int64{}}
	const racers = 32
	for i := int64(1); i <= racers; i++ {
		orgs.acceptable[i] = true
	}
	e, store, _ := testEngine(orgs)

	created, err := e.CreateReport(context.Background(), validParams())
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	var (
		wg        sync.WaitGroup
		winners   int64
		conflicts int64
		mu        sync.Mutex
	)
	for i := int64(1); i <= racers; i++ {
		wg.Add(1)
		go func(orgID int64) {
			defer wg.Done()
			_, err := e.Accept(context.Background(), created.TrackingID, orgID, "Racer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, apperrors.ErrConflict):
				conflicts++
			default:
				t.Errorf("org %d: unexpected error %v", orgID, err)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if conflicts != racers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, racers-1)
	}

	final, _ := store.GetByTrackingID(context.Background(), created.TrackingID)
	if final.AssignedOrgID == nil {
		t.Fatalf("report ended the race unclaimed")
	}
	if final.Status != models.StatusHelpOnTheWay {
		t.Errorf("final status = %s, want %s", final.Status, models.StatusHelpOnTheWay)
	}
}

func TestAssignWorker(t *testing.T) {
	e, _, _ := testEngine(defaultOrgs())

	created, _ := e.CreateReport(context.Background(), validParams())

	// Assignment requires a claimed report.
	if _, err := e.AssignWorker(context.Background(), created.TrackingID, 301, "Ravi"); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Errorf("assign before accept: expected invalid state, got %v", err)
	}

	if _, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Worker 400 belongs to another organization.
	if _, err := e.AssignWorker(context.Background(), created.TrackingID, 400, "Wrong Org Worker"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("assign foreign worker: expected forbidden, got %v", err)
	}

	report, err := e.AssignWorker(context.Background(), created.TrackingID, 301, "Ravi")
	if err != nil {
		t.Fatalf("assign: unexpected error: %v", err)
	}
	if report.AssignedWorkerID == nil || *report.AssignedWorkerID != 301 {
		t.Errorf("assigned worker = %v, want 301", report.AssignedWorkerID)
	}
	// Assignment does not advance the lifecycle.
	if report.Status != models.StatusHelpOnTheWay {
		t.Errorf("status after assignment = %s, want %s", report.Status, models.StatusHelpOnTheWay)
	}
}

func TestAdvanceStatus(t *testing.T) {
	e, _, bridge := testEngine(defaultOrgs())

	created, _ := e.CreateReport(context.Background(), validParams())
	if _, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, status := range []models.ReportStatus{
		models.StatusTeamDispatched,
		models.StatusAnimalRescued,
		models.StatusCaseResolved,
	} {
		report, err := e.AdvanceStatus(context.Background(), created.TrackingID, status)
		if err != nil {
			t.Fatalf("AdvanceStatus(%s): %v", status, err)
		}
		if report.Status != status {
			t.Errorf("status = %s, want %s", report.Status, status)
		}
	}

	if _, err := e.AdvanceStatus(context.Background(), "PR-MISSING1", models.StatusCaseResolved); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("advance of missing report: expected not found, got %v", err)
	}

	// create + accept + 3 advances
	if bridge.count() != 5 {
		t.Errorf("published events = %d, want 5", bridge.count())
	}
}

// failingBridge always errors; mutations must still succeed.
type failingBridge struct{}

func (failingBridge) Publish(string, models.ReportStatus, *models.Coordinates) error {
	return errors.New("broker down")
}

func TestBridgeFailureDoesNotFailMutation(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store, defaultOrgs(), failingBridge{})

	created, err := e.CreateReport(context.Background(), validParams())
	if err != nil {
		t.Fatalf("CreateReport with failing bridge: %v", err)
	}
	if _, err := e.Accept(context.Background(), created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("Accept with failing bridge: %v", err)
	}
}

// End to end over the in-memory store: report, race, dispatch, resolve.
func TestCaseLifecycleScenario(t *testing.T) {
	e, _, bridge := testEngine(defaultOrgs())
	ctx := context.Background()

	created, err := e.CreateReport(ctx, validParams())
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	open, err := e.Available(ctx)
	if err != nil || len(open) != 1 {
		t.Fatalf("Available = %v, %v; want the one open report", open, err)
	}

	if _, err := e.Accept(ctx, created.TrackingID, 42, "Pune Welfare"); err != nil {
		t.Fatalf("accept by org 42: %v", err)
	}
	if _, err := e.Accept(ctx, created.TrackingID, 99, "Late Arrivals"); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("accept by org 99: expected conflict, got %v", err)
	}

	if _, err := e.AssignWorker(ctx, created.TrackingID, 301, "Ravi"); err != nil {
		t.Fatalf("assign worker: %v", err)
	}

	for _, status := range []models.ReportStatus{
		models.StatusTeamDispatched,
		models.StatusAnimalRescued,
		models.StatusCaseResolved,
	} {
		if _, err := e.AdvanceStatus(ctx, created.TrackingID, status); err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}

	final, err := e.GetByTrackingID(ctx, created.TrackingID)
	if err != nil {
		t.Fatalf("final read: %v", err)
	}
	if final.Status != models.StatusCaseResolved {
		t.Errorf("final status = %s, want %s", final.Status, models.StatusCaseResolved)
	}

	open, err = e.Available(ctx)
	if err != nil || len(open) != 0 {
		t.Errorf("resolved case still listed as available: %v, %v", open, err)
	}

	// create, accept, assign, 3 advances
	if bridge.count() != 6 {
		t.Errorf("published events = %d, want 6", bridge.count())
	}

	last := bridge.events[len(bridge.events)-1]
	if last.TrackingID != created.TrackingID || last.Status != models.StatusCaseResolved {
		t.Errorf("last event = %+v, want resolution of %s", last, created.TrackingID)
	}
}
