package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dose_events (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		medication_id TEXT,
		status TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		scheduled_time TEXT,
		severity TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_dose_events_patient ON dose_events(patient_id);
	CREATE INDEX IF NOT EXISTS idx_dose_events_status ON dose_events(status);

	CREATE TABLE IF NOT EXISTS medications (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		generic_name TEXT,
		dosage TEXT,
		shape TEXT,
		color TEXT,
		imprint TEXT,
		ndc_number TEXT,
		manufacturer TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_medications_name ON medications(name);

	CREATE TABLE IF NOT EXISTS medication_schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		medication_name TEXT NOT NULL,
		dosage TEXT NOT NULL,
		frequency TEXT NOT NULL,
		times TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		instructions TEXT,
		prescriber TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_schedules_patient ON medication_schedules(patient_id);

	CREATE TABLE IF NOT EXISTS pill_database (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		dosage TEXT,
		shape TEXT,
		color TEXT,
		imprint TEXT,
		size TEXT,
		ndc_number TEXT,
		manufacturer TEXT
	);

	CREATE TABLE IF NOT EXISTS caregiver_alerts (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		caregiver_contact TEXT,
		alert_type TEXT,
		message TEXT NOT NULL,
		severity TEXT,
		timestamp TEXT NOT NULL,
		sent INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_patient ON caregiver_alerts(patient_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) AppendDoseEvent(event *models.DoseEvent) error {
	query := `
		INSERT INTO dose_events (id, patient_id, medication_id, status, timestamp, confidence, scheduled_time, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var scheduled interface{}
	if event.ScheduledTime != nil {
		scheduled = event.ScheduledTime.Format(time.RFC3339)
	}

	_, err := c.db.Exec(
		query,
		event.ID,
		event.PatientID,
		event.MedicationID,
		event.Status,
		event.Timestamp.Format(time.RFC3339),
		event.Confidence,
		scheduled,
		event.Severity,
	)

	if err != nil {
		return fmt.Errorf("failed to append dose event: %w", err)
	}

	logger.Debug("Dose event appended",
		zap.String("patient_id", event.PatientID),
		zap.String("status", event.Status),
	)
	return nil
}

// ListDoseEvents returns every event recorded for the patient, in storage
// order. Timestamps are parsed here so a corrupt row fails the whole read
// instead of silently understating adherence.
func (c *Client) ListDoseEvents(patientID string) ([]models.DoseEvent, error) {
	query := `
		SELECT id, patient_id, medication_id, status, timestamp, confidence, scheduled_time, severity
		FROM dose_events
		WHERE patient_id = ?
	`

	rows, err := c.db.Query(query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose events: %w", err)
	}
	defer rows.Close()

	var events []models.DoseEvent
	for rows.Next() {
		var e models.DoseEvent
		var medicationID, timestamp, severity sql.NullString
		var scheduled sql.NullString

		err := rows.Scan(&e.ID, &e.PatientID, &medicationID, &e.Status, &timestamp, &e.Confidence, &scheduled, &severity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.MedicationID = medicationID.String
		e.Severity = severity.String

		e.Timestamp, err = time.Parse(time.RFC3339, timestamp.String)
		if err != nil {
			return nil, fmt.Errorf("malformed dose event %s: %w", e.ID, err)
		}

		if scheduled.Valid && scheduled.String != "" {
			t, err := time.Parse(time.RFC3339, scheduled.String)
			if err != nil {
				return nil, fmt.Errorf("malformed dose event %s: %w", e.ID, err)
			}
			e.ScheduledTime = &t
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dose events: %w", err)
	}

	return events, nil
}

func (c *Client) AppendAlert(alert *models.CaregiverAlert) error {
	query := `
		INSERT INTO caregiver_alerts (id, patient_id, caregiver_contact, alert_type, message, severity, timestamp, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	sent := 0
	if alert.Sent {
		sent = 1
	}

	_, err := c.db.Exec(
		query,
		alert.ID,
		alert.PatientID,
		alert.CaregiverContact,
		alert.AlertType,
		alert.Message,
		alert.Severity,
		alert.Timestamp.Format(time.RFC3339),
		sent,
	)

	if err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}

	logger.Info("Caregiver alert recorded",
		zap.String("alert_id", alert.ID),
		zap.String("patient_id", alert.PatientID),
		zap.String("severity", alert.Severity),
	)
	return nil
}

func (c *Client) ListAlerts(patientID string) ([]models.CaregiverAlert, error) {
	query := `
		SELECT id, patient_id, caregiver_contact, alert_type, message, severity, timestamp, sent
		FROM caregiver_alerts
		WHERE patient_id = ?
		ORDER BY timestamp DESC
	`

	rows, err := c.db.Query(query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.CaregiverAlert
	for rows.Next() {
		var a models.CaregiverAlert
		var contact, alertType, severity, timestamp sql.NullString
		var sent int

		err := rows.Scan(&a.ID, &a.PatientID, &contact, &alertType, &a.Message, &severity, &timestamp, &sent)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.CaregiverContact = contact.String
		a.AlertType = alertType.String
		a.Severity = severity.String
		a.Sent = sent == 1

		a.Timestamp, err = time.Parse(time.RFC3339, timestamp.String)
		if err != nil {
			return nil, fmt.Errorf("malformed alert %s: %w", a.ID, err)
		}

		alerts = append(alerts, a)
	}

	return alerts, nil
}

func (c *Client) InsertMedication(med *models.Medication) error {
	query := `
		INSERT INTO medications (id, name, generic_name, dosage, shape, color, imprint, ndc_number, manufacturer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		med.ID,
		med.Name,
		med.GenericName,
		med.Dosage,
		med.Shape,
		med.Color,
		med.Imprint,
		med.NDCNumber,
		med.Manufacturer,
		med.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert medication: %w", err)
	}

	logger.Debug("Medication inserted", zap.String("id", med.ID), zap.String("name", med.Name))
	return nil
}

func (c *Client) GetMedication(id string) (*models.Medication, error) {
	query := `
		SELECT id, name, generic_name, dosage, shape, color, imprint, ndc_number, manufacturer, created_at
		FROM medications WHERE id = ?
	`

	var med models.Medication
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&med.ID,
		&med.Name,
		&med.GenericName,
		&med.Dosage,
		&med.Shape,
		&med.Color,
		&med.Imprint,
		&med.NDCNumber,
		&med.Manufacturer,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	med.CreatedAt = time.Unix(createdAt, 0)
	return &med, nil
}

func (c *Client) AddSchedule(schedule *models.MedicationSchedule) (int, error) {
	timesJSON, err := json.Marshal(schedule.Times)
	if err != nil {
		return 0, fmt.Errorf("failed to encode schedule times: %w", err)
	}

	var endDate interface{}
	if schedule.EndDate != nil {
		endDate = schedule.EndDate.Format(time.RFC3339)
	}

	query := `
		INSERT INTO medication_schedules (patient_id, medication_name, dosage, frequency, times, start_date, end_date, instructions, prescriber)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := c.db.Exec(
		query,
		schedule.PatientID,
		schedule.MedicationName,
		schedule.Dosage,
		schedule.Frequency,
		string(timesJSON),
		schedule.StartDate.Format(time.RFC3339),
		endDate,
		schedule.Instructions,
		schedule.Prescriber,
	)

	if err != nil {
		return 0, fmt.Errorf("failed to add schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get schedule id: %w", err)
	}

	logger.Info("Schedule added",
		zap.String("patient_id", schedule.PatientID),
		zap.String("medication", schedule.MedicationName),
	)
	return int(id), nil
}

func (c *Client) ListSchedules(patientID string) ([]models.MedicationSchedule, error) {
	query := `
		SELECT id, patient_id, medication_name, dosage, frequency, times, start_date, end_date, instructions, prescriber
		FROM medication_schedules
		WHERE patient_id = ?
		ORDER BY id
	`

	rows, err := c.db.Query(query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.MedicationSchedule
	for rows.Next() {
		var s models.MedicationSchedule
		var timesJSON, startDate string
		var endDate, instructions, prescriber sql.NullString

		err := rows.Scan(&s.ID, &s.PatientID, &s.MedicationName, &s.Dosage, &s.Frequency, &timesJSON, &startDate, &endDate, &instructions, &prescriber)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(timesJSON), &s.Times); err != nil {
			return nil, fmt.Errorf("malformed schedule %d times: %w", s.ID, err)
		}
		s.Instructions = instructions.String
		s.Prescriber = prescriber.String

		s.StartDate, err = time.Parse(time.RFC3339, startDate)
		if err != nil {
			return nil, fmt.Errorf("malformed schedule %d: %w", s.ID, err)
		}

		if endDate.Valid && endDate.String != "" {
			t, err := time.Parse(time.RFC3339, endDate.String)
			if err != nil {
				return nil, fmt.Errorf("malformed schedule %d: %w", s.ID, err)
			}
			s.EndDate = &t
		}

		schedules = append(schedules, s)
	}

	return schedules, nil
}

func (c *Client) DeleteSchedule(patientID string, scheduleID int) (bool, error) {
	result, err := c.db.Exec(
		`DELETE FROM medication_schedules WHERE patient_id = ? AND id = ?`,
		patientID, scheduleID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	return affected > 0, nil
}

func (c *Client) UpsertPill(pill *models.PillRecord) error {
	query := `
		INSERT INTO pill_database (key, name, dosage, shape, color, imprint, size, ndc_number, manufacturer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			dosage = excluded.dosage,
			shape = excluded.shape,
			color = excluded.color,
			imprint = excluded.imprint,
			size = excluded.size,
			ndc_number = excluded.ndc_number,
			manufacturer = excluded.manufacturer
	`

	_, err := c.db.Exec(
		query,
		pill.Key,
		pill.Name,
		pill.Dosage,
		pill.Shape,
		pill.Color,
		pill.Imprint,
		pill.Size,
		pill.NDCNumber,
		pill.Manufacturer,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert pill: %w", err)
	}

	return nil
}

func (c *Client) GetPill(key string) (*models.PillRecord, error) {
	query := `
		SELECT key, name, dosage, shape, color, imprint, size, ndc_number, manufacturer
		FROM pill_database WHERE key = ?
	`

	var p models.PillRecord
	err := c.db.QueryRow(query, key).Scan(
		&p.Key, &p.Name, &p.Dosage, &p.Shape, &p.Color, &p.Imprint, &p.Size, &p.NDCNumber, &p.Manufacturer,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pill: %w", err)
	}

	return &p, nil
}

func (c *Client) ListPills() ([]models.PillRecord, error) {
	query := `
		SELECT key, name, dosage, shape, color, imprint, size, ndc_number, manufacturer
		FROM pill_database ORDER BY key
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pills: %w", err)
	}
	defer rows.Close()

	var pills []models.PillRecord
	for rows.Next() {
		var p models.PillRecord
		err := rows.Scan(&p.Key, &p.Name, &p.Dosage, &p.Shape, &p.Color, &p.Imprint, &p.Size, &p.NDCNumber, &p.Manufacturer)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		pills = append(pills, p)
	}

	return pills, nil
}

// ClearAll wipes every table. Admin use only.
func (c *Client) ClearAll() error {
	tables := []string{"dose_events", "medications", "medication_schedules", "pill_database", "caregiver_alerts"}

	for _, table := range tables {
		if _, err := c.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	logger.Info("All stored data cleared")
	return nil
}
