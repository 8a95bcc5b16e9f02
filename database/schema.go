package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist.
func InitSchema(db *sql.DB) error {
	log.Info("Initializing rescue service database schema...")

	reportsTableSQL := `
	CREATE TABLE IF NOT EXISTS reports(
		id BIGINT NOT NULL AUTO_INCREMENT,
		tracking_id VARCHAR(16) NOT NULL,
		animal_type VARCHAR(255) NOT NULL,
		animal_condition VARCHAR(255) NOT NULL,
		injury_description VARCHAR(1000) NOT NULL,
		additional_notes VARCHAR(1000),
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		address VARCHAR(500),
		image_urls JSON,
		status ENUM('SUBMITTED', 'SEARCHING_FOR_HELP', 'HELP_ON_THE_WAY',
			'TEAM_DISPATCHED', 'ANIMAL_RESCUED', 'CASE_RESOLVED')
			NOT NULL DEFAULT 'SUBMITTED',
		reporter_name VARCHAR(255),
		reporter_phone VARCHAR(64),
		reporter_email VARCHAR(255),
		assigned_org_id BIGINT,
		assigned_org_name VARCHAR(255),
		assigned_worker_id BIGINT,
		assigned_worker_name VARCHAR(255),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX tracking_id_index (tracking_id),
		INDEX status_index (status),
		INDEX assigned_org_index (assigned_org_id),
		INDEX assigned_worker_index (assigned_worker_id),
		INDEX reporter_email_index (reporter_email)
	)`

	if _, err := db.Exec(reportsTableSQL); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	log.Info("Reports table created/verified")

	orgsTableSQL := `
	CREATE TABLE IF NOT EXISTS organizations(
		id BIGINT NOT NULL AUTO_INCREMENT,
		code VARCHAR(16),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(64),
		address VARCHAR(500),
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		description VARCHAR(1000),
		verification_status ENUM('PENDING', 'APPROVED', 'REJECTED')
			NOT NULL DEFAULT 'PENDING',
		is_active BOOL NOT NULL DEFAULT FALSE,
		rejection_reason VARCHAR(1000),
		verified_by BIGINT,
		verified_at TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX email_index (email),
		UNIQUE INDEX code_index (code),
		INDEX verification_status_index (verification_status),
		INDEX is_active_index (is_active)
	)`

	if _, err := db.Exec(orgsTableSQL); err != nil {
		return fmt.Errorf("failed to create organizations table: %w", err)
	}
	log.Info("Organizations table created/verified")

	workersTableSQL := `
	CREATE TABLE IF NOT EXISTS workers(
		id BIGINT NOT NULL AUTO_INCREMENT,
		org_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(64),
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX worker_email_index (email),
		INDEX worker_org_index (org_id)
	)`

	if _, err := db.Exec(workersTableSQL); err != nil {
		return fmt.Errorf("failed to create workers table: %w", err)
	}
	log.Info("Workers table created/verified")

	log.Info("Rescue service database schema initialization completed")
	return nil
}
