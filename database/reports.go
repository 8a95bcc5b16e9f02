package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"animal-rescue-service/apperrors"
	"animal-rescue-service/models"

	"github.com/apex/log"
)

// ReportService persists rescue reports and exposes the conditional
// updates the lifecycle engine arbitrates with.
type ReportService struct {
	db *sql.DB
}

// NewReportService creates a report service over the given pool.
func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

const reportColumns = `id, tracking_id, animal_type, animal_condition, injury_description,
		additional_notes, latitude, longitude, address, image_urls, status,
		reporter_name, reporter_phone, reporter_email,
		assigned_org_id, assigned_org_name, assigned_worker_id, assigned_worker_name,
		created_at, updated_at`

// Create inserts a new report and fills in its database id.
func (s *ReportService) Create(ctx context.Context, r *models.Report) error {
	imageURLs, err := encodeImageURLs(r.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `INSERT
		INTO reports (tracking_id, animal_type, animal_condition, injury_description,
			additional_notes, latitude, longitude, address, image_urls, status,
			reporter_name, reporter_phone, reporter_email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TrackingID, r.AnimalType, r.Condition, r.InjuryDescription,
		r.AdditionalNotes, r.Latitude, r.Longitude, r.Address, imageURLs, string(r.Status),
		r.ReporterName, r.ReporterPhone, r.ReporterEmail, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get report id: %w", err)
	}
	r.ID = id
	return nil
}

// GetByTrackingID fetches one report by its public identifier.
func (s *ReportService) GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE tracking_id = ?`, trackingID)

	r, err := scanReportRow(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("report %s", trackingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", trackingID, err)
	}
	return r, nil
}

// TrackingIDExists reports whether a tracking id is already in use.
func (s *ReportService) TrackingIDExists(ctx context.Context, trackingID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM reports WHERE tracking_id = ?`, trackingID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tracking id: %w", err)
	}
	return true, nil
}

// Accept is the single contested write in the system. It commits the
// claim only if the report is still unclaimed and open at commit time;
// the returned affected-row count is the arbitration result.
func (s *ReportService) Accept(ctx context.Context, trackingID string, orgID int64, orgName string, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE reports
		SET assigned_org_id = ?, assigned_org_name = ?, status = ?, updated_at = ?
		WHERE tracking_id = ?
			AND assigned_org_id IS NULL
			AND status IN (?, ?)`,
		orgID, orgName, string(models.StatusHelpOnTheWay), now,
		trackingID, string(models.StatusSubmitted), string(models.StatusSearchingHelp))
	if err != nil {
		return 0, fmt.Errorf("failed to accept report %s: %w", trackingID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get accept result: %w", err)
	}
	return rows, nil
}

// AssignWorker records the field worker on an already claimed report.
func (s *ReportService) AssignWorker(ctx context.Context, trackingID string, workerID int64, workerName string, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE reports
		SET assigned_worker_id = ?, assigned_worker_name = ?, updated_at = ?
		WHERE tracking_id = ? AND assigned_org_id IS NOT NULL`,
		workerID, workerName, now, trackingID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign worker on report %s: %w", trackingID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get assign result: %w", err)
	}
	return rows, nil
}

// UpdateStatus sets the lifecycle status directly.
func (s *ReportService) UpdateStatus(ctx context.Context, trackingID string, status models.ReportStatus, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE reports
		SET status = ?, updated_at = ?
		WHERE tracking_id = ?`,
		string(status), now, trackingID)
	if err != nil {
		return 0, fmt.Errorf("failed to update status of report %s: %w", trackingID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get status update result: %w", err)
	}
	return rows, nil
}

// Available returns the reports still open for claiming.
func (s *ReportService) Available(ctx context.Context) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE status IN (?, ?)
		ORDER BY created_at DESC`,
		string(models.StatusSubmitted), string(models.StatusSearchingHelp))
}

// ByOrg returns the reports claimed by an organization.
func (s *ReportService) ByOrg(ctx context.Context, orgID int64) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE assigned_org_id = ?
		ORDER BY created_at DESC`, orgID)
}

// ByWorker returns the reports assigned to a field worker.
func (s *ReportService) ByWorker(ctx context.Context, workerID int64) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE assigned_worker_id = ?
		ORDER BY created_at DESC`, workerID)
}

// InViewport returns the reports inside a map bounding box.
func (s *ReportService) InViewport(ctx context.Context, vp models.ViewPort) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		vp.LatMin, vp.LatMax, vp.LonMin, vp.LonMax)
}

// ByReporter returns the reports filed under a reporter email.
func (s *ReportService) ByReporter(ctx context.Context, email string) ([]models.Report, error) {
	return s.queryReports(ctx, `SELECT `+reportColumns+`
		FROM reports
		WHERE reporter_email = ?
		ORDER BY created_at DESC`, email)
}

func (s *ReportService) queryReports(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReportRow(rows)
		if err != nil {
			log.Errorf("Failed to scan report row: %v", err)
			continue
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReportRow(row rowScanner) (*models.Report, error) {
	var (
		r             models.Report
		status        string
		notes         sql.NullString
		address       sql.NullString
		imageURLs     sql.NullString
		reporterName  sql.NullString
		reporterPhone sql.NullString
		reporterEmail sql.NullString
		orgID         sql.NullInt64
		orgName       sql.NullString
		workerID      sql.NullInt64
		workerName    sql.NullString
	)

	if err := row.Scan(&r.ID, &r.TrackingID, &r.AnimalType, &r.Condition, &r.InjuryDescription,
		&notes, &r.Latitude, &r.Longitude, &address, &imageURLs, &status,
		&reporterName, &reporterPhone, &reporterEmail,
		&orgID, &orgName, &workerID, &workerName,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	r.Status = models.ReportStatus(status)
	r.AdditionalNotes = notes.String
	r.Address = address.String
	r.ReporterName = reporterName.String
	r.ReporterPhone = reporterPhone.String
	r.ReporterEmail = reporterEmail.String
	if orgID.Valid {
		r.AssignedOrgID = &orgID.Int64
	}
	if orgName.Valid {
		r.AssignedOrgName = &orgName.String
	}
	if workerID.Valid {
		r.AssignedWorkerID = &workerID.Int64
	}
	if workerName.Valid {
		r.AssignedWorkerName = &workerName.String
	}
	if imageURLs.Valid && imageURLs.String != "" {
		if err := json.Unmarshal([]byte(imageURLs.String), &r.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to decode image urls: %w", err)
		}
	}
	return &r, nil
}

func encodeImageURLs(urls []string) (any, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
