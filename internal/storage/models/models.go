package models

import "time"

// Dose event statuses as persisted in the dose_events table.
const (
	StatusTaken   = "taken"
	StatusMissed  = "missed"
	StatusSkipped = "skipped"
)

// DoseEvent is one recorded occurrence of a scheduled dose. Events are
// immutable once written; the adherence engine only ever reads them.
type DoseEvent struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patient_id"`
	MedicationID  string     `json:"medication_id"`
	Status        string     `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	Confidence    float64    `json:"confidence"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	Severity      string     `json:"severity,omitempty"`
}

type Medication struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	GenericName  string    `json:"generic_name"`
	Dosage       string    `json:"dosage"`
	Shape        string    `json:"shape"`
	Color        string    `json:"color"`
	Imprint      string    `json:"imprint"`
	NDCNumber    string    `json:"ndc_number"`
	Manufacturer string    `json:"manufacturer"`
	CreatedAt    time.Time `json:"created_at"`
}

type MedicationSchedule struct {
	ID             int        `json:"id"`
	PatientID      string     `json:"patient_id"`
	MedicationName string     `json:"medication_name"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	Times          []string   `json:"times"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Instructions   string     `json:"instructions"`
	Prescriber     string     `json:"prescriber"`
}

// PillRecord is an entry in the pill identification database.
type PillRecord struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Shape        string `json:"shape"`
	Color        string `json:"color"`
	Imprint      string `json:"imprint"`
	Size         string `json:"size"`
	NDCNumber    string `json:"ndc_number"`
	Manufacturer string `json:"manufacturer"`
}

type CaregiverAlert struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	CaregiverContact string    `json:"caregiver_contact"`
	AlertType        string    `json:"alert_type"`
	Message          string    `json:"message"`
	Severity         string    `json:"severity"`
	Timestamp        time.Time `json:"timestamp"`
	Sent             bool      `json:"sent"`
}
