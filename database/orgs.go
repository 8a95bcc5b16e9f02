package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"animal-rescue-service/apperrors"
	"animal-rescue-service/models"

	"github.com/apex/log"
)

// CodeGen produces one candidate organization code. Injectable for tests.
type CodeGen func() string

// OrganizationService persists rescue organizations and their workers.
// The lifecycle engine consumes it only through the CanAccept and
// WorkerBelongsTo predicates.
type OrganizationService struct {
	db *sql.DB
}

// NewOrganizationService creates an organization service over the given pool.
func NewOrganizationService(db *sql.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

const orgColumns = `id, code, name, email, phone, address, latitude, longitude,
		description, verification_status, is_active, rejection_reason,
		verified_by, verified_at, created_at, updated_at`

// Create registers a new organization, pending review and inactive.
func (s *OrganizationService) Create(ctx context.Context, o *models.Organization) error {
	o.VerificationStatus = models.VerificationPending
	o.IsActive = false

	result, err := s.db.ExecContext(ctx, `INSERT
		INTO organizations (name, email, phone, address, latitude, longitude,
			description, verification_status, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.Email, o.Phone, o.Address, o.Latitude, o.Longitude,
		o.Description, string(o.VerificationStatus), o.IsActive, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get organization id: %w", err)
	}
	o.ID = id
	return nil
}

// GetByID fetches one organization.
func (s *OrganizationService) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+`
		FROM organizations
		WHERE id = ?`, id)

	o, err := scanOrgRow(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("organization %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization %d: %w", id, err)
	}
	return o, nil
}

// ListActive returns all active organizations.
func (s *OrganizationService) ListActive(ctx context.Context) ([]models.Organization, error) {
	return s.queryOrgs(ctx, `SELECT `+orgColumns+`
		FROM organizations
		WHERE is_active = TRUE
		ORDER BY name`)
}

// ListPending returns organizations awaiting admin review.
func (s *OrganizationService) ListPending(ctx context.Context) ([]models.Organization, error) {
	return s.queryOrgs(ctx, `SELECT `+orgColumns+`
		FROM organizations
		WHERE verification_status = ?
		ORDER BY created_at`, string(models.VerificationPending))
}

// Approve marks an organization approved and active, allocating its
// public code on first approval. Codes are random and collision
// checked, never derived from row counts.
func (s *OrganizationService) Approve(ctx context.Context, id, adminID int64, gen CodeGen, now time.Time) (*models.Organization, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	code := org.Code
	if code == "" {
		code, err = s.uniqueCode(ctx, gen)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.db.ExecContext(ctx, `UPDATE organizations
		SET verification_status = ?, is_active = TRUE, code = ?,
			verified_by = ?, verified_at = ?, updated_at = ?
		WHERE id = ?`,
		string(models.VerificationApproved), code, adminID, now, now, id)
	LogResult("approveOrganization", result, err)
	if err != nil {
		return nil, fmt.Errorf("failed to approve organization %d: %w", id, err)
	}

	return s.GetByID(ctx, id)
}

// Reject marks an organization rejected and inactive, recording why.
func (s *OrganizationService) Reject(ctx context.Context, id, adminID int64, reason string, now time.Time) (*models.Organization, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE organizations
		SET verification_status = ?, is_active = FALSE, rejection_reason = ?,
			verified_by = ?, verified_at = ?, updated_at = ?
		WHERE id = ?`,
		string(models.VerificationRejected), reason, adminID, now, now, id)
	LogResult("rejectOrganization", result, err)
	if err != nil {
		return nil, fmt.Errorf("failed to reject organization %d: %w", id, err)
	}

	return s.GetByID(ctx, id)
}

// Deactivate takes an organization out of matching and acceptance.
// Its workers are kept.
func (s *OrganizationService) Deactivate(ctx context.Context, id int64, now time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE organizations
		SET is_active = FALSE, updated_at = ?
		WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate organization %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deactivate result: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFoundf("organization %d", id)
	}
	return nil
}

// CanAccept reports whether an organization may claim reports: it must
// exist, be active and be approved.
func (s *OrganizationService) CanAccept(ctx context.Context, orgID int64) (bool, error) {
	var (
		isActive bool
		status   string
	)
	err := s.db.QueryRowContext(ctx, `SELECT is_active, verification_status
		FROM organizations
		WHERE id = ?`, orgID).Scan(&isActive, &status)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFoundf("organization %d", orgID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check organization %d: %w", orgID, err)
	}
	return isActive && models.VerificationStatus(status) == models.VerificationApproved, nil
}

// AddWorker registers a field worker under an organization.
func (s *OrganizationService) AddWorker(ctx context.Context, w *models.Worker) error {
	if _, err := s.GetByID(ctx, w.OrgID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `INSERT
		INTO workers (org_id, name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.OrgID, w.Name, w.Email, w.Phone, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert worker: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get worker id: %w", err)
	}
	w.ID = id
	return nil
}

// Workers lists the field workers of an organization.
func (s *OrganizationService) Workers(ctx context.Context, orgID int64) ([]models.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, org_id, name, email, phone, created_at
		FROM workers
		WHERE org_id = ?
		ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	workers := make([]models.Worker, 0)
	for rows.Next() {
		var (
			w     models.Worker
			phone sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.OrgID, &w.Name, &w.Email, &phone, &w.CreatedAt); err != nil {
			log.Errorf("Failed to scan worker row: %v", err)
			continue
		}
		w.Phone = phone.String
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}
	return workers, nil
}

// GetWorker fetches a single field worker.
func (s *OrganizationService) GetWorker(ctx context.Context, workerID int64) (*models.Worker, error) {
	var (
		w     models.Worker
		phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, org_id, name, email, phone, created_at
		FROM workers
		WHERE id = ?`, workerID).Scan(&w.ID, &w.OrgID, &w.Name, &w.Email, &phone, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("worker %d", workerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker %d: %w", workerID, err)
	}
	w.Phone = phone.String
	return &w, nil
}

// WorkerBelongsTo reports whether a worker belongs to an organization.
func (s *OrganizationService) WorkerBelongsTo(ctx context.Context, workerID, orgID int64) (bool, error) {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT org_id
		FROM workers
		WHERE id = ?`, workerID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFoundf("worker %d", workerID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check worker %d: %w", workerID, err)
	}
	return ownerID == orgID, nil
}

func (s *OrganizationService) uniqueCode(ctx context.Context, gen CodeGen) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := gen()
		var one int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM organizations WHERE code = ?`, code).Scan(&one)
		if err == sql.ErrNoRows {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check organization code: %w", err)
		}
	}
	return "", fmt.Errorf("could not allocate a unique organization code")
}

func (s *OrganizationService) queryOrgs(ctx context.Context, query string, args ...any) ([]models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]models.Organization, 0)
	for rows.Next() {
		o, err := scanOrgRow(rows)
		if err != nil {
			log.Errorf("Failed to scan organization row: %v", err)
			continue
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}
	return orgs, nil
}

func scanOrgRow(row rowScanner) (*models.Organization, error) {
	var (
		o           models.Organization
		code        sql.NullString
		phone       sql.NullString
		address     sql.NullString
		description sql.NullString
		status      string
		reason      sql.NullString
		verifiedBy  sql.NullInt64
		verifiedAt  sql.NullTime
	)

	if err := row.Scan(&o.ID, &code, &o.Name, &o.Email, &phone, &address,
		&o.Latitude, &o.Longitude, &description, &status, &o.IsActive,
		&reason, &verifiedBy, &verifiedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	o.Code = code.String
	o.Phone = phone.String
	o.Address = address.String
	o.Description = description.String
	o.VerificationStatus = models.VerificationStatus(status)
	o.RejectionReason = reason.String
	if verifiedBy.Valid {
		o.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		o.VerifiedAt = &verifiedAt.Time
	}
	return &o, nil
}
