package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"quantship-deployment/internal/logger"
	"quantship-deployment/internal/models"
)

// InitDB opens the deployment history database and ensures the schema
// exists.
func InitDB(dbPath string) (*sql.DB, error) {
	log := logger.WithModule("database")
	log.WithField("path", dbPath).Info("Initializing database connection")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS deployments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT UNIQUE NOT NULL,
		artifact TEXT NOT NULL,
		version TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT,
		message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Info("Database tables initialized")

	return db, nil
}

func InsertDeployment(db *sql.DB, runID, artifact, version, status string) error {
	stmt, err := db.Prepare("INSERT INTO deployments (run_id, artifact, version, status) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.Exec(runID, artifact, version, status); err != nil {
		return fmt.Errorf("failed to insert deployment: %w", err)
	}
	return nil
}

func UpdateDeploymentStatus(db *sql.DB, runID, status string) error {
	stmt, err := db.Prepare("UPDATE deployments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE run_id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(status, runID)
	return err
}

// RecordResult stores the terminal outcome of a run.
func RecordResult(db *sql.DB, result models.DeploymentResult) error {
	status := models.StatusSucceeded
	if !result.Succeeded {
		status = models.StatusFailed
	}

	stmt, err := db.Prepare("UPDATE deployments SET status = ?, stage = ?, message = ?, updated_at = CURRENT_TIMESTAMP WHERE run_id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(status, result.Stage, result.Message, result.RunID)
	return err
}

func GetDeployment(db *sql.DB, runID string) (*models.Deployment, error) {
	var d models.Deployment
	var stage, message sql.NullString
	err := db.QueryRow("SELECT id, run_id, artifact, version, status, stage, message FROM deployments WHERE run_id = ?", runID).
		Scan(&d.ID, &d.RunID, &d.Artifact, &d.Version, &d.Status, &stage, &message)
	if err != nil {
		return nil, err
	}
	d.Stage = stage.String
	d.Message = message.String
	return &d, nil
}
