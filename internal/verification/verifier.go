package verification

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/pkg/logger"
)

var ErrMedicationNotFound = errors.New("medication not found")

type Store interface {
	ListSchedules(patientID string) ([]models.MedicationSchedule, error)
	AddSchedule(schedule *models.MedicationSchedule) (int, error)
	DeleteSchedule(patientID string, scheduleID int) (bool, error)
	AppendDoseEvent(event *models.DoseEvent) error
	InsertMedication(med *models.Medication) error
	GetMedication(id string) (*models.Medication, error)
}

// Verifier checks identified pills against patient schedules and owns the
// dose-logging write path.
type Verifier struct {
	store     Store
	windowMin int
	now       func() time.Time
}

// PillInfo is the identification result being checked against the schedule.
type PillInfo struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Shape        string `json:"shape"`
	Color        string `json:"color"`
	Imprint      string `json:"imprint,omitempty"`
	NDCNumber    string `json:"ndc_number,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

type VerifyResult struct {
	IsCorrect           bool                       `json:"is_correct"`
	ScheduledMedication *models.MedicationSchedule `json:"scheduled_medication,omitempty"`
	Message             string                     `json:"message"`
	NextDoseTime        *time.Time                 `json:"next_dose_time,omitempty"`
}

func NewVerifier(store Store, windowMinutes int) *Verifier {
	return &Verifier{
		store:     store,
		windowMin: windowMinutes,
		now:       time.Now,
	}
}

// Verify checks whether the identified pill matches a medication scheduled
// within the verification window around the given time.
func (v *Verifier) Verify(patientID string, pill PillInfo, timestamp time.Time) (*VerifyResult, error) {
	schedules, err := v.store.ListSchedules(patientID)
	if err != nil {
		return nil, fmt.Errorf("verify medication: %w", err)
	}

	if len(schedules) == 0 {
		return &VerifyResult{
			IsCorrect: false,
			Message:   "No medication schedule found for patient",
		}, nil
	}

	next := nextDoseTime(schedules, timestamp)

	inWindow := v.schedulesInWindow(schedules, timestamp)
	if len(inWindow) == 0 {
		return &VerifyResult{
			IsCorrect:    false,
			Message:      "No medications scheduled at this time",
			NextDoseTime: next,
		}, nil
	}

	for i := range inWindow {
		if pillMatches(pill, &inWindow[i]) {
			return &VerifyResult{
				IsCorrect:           true,
				ScheduledMedication: &inWindow[i],
				Message:             "Correct medication for scheduled time",
				NextDoseTime:        next,
			}, nil
		}
	}

	return &VerifyResult{
		IsCorrect:           false,
		ScheduledMedication: &inWindow[0],
		Message:             "Pill does not match scheduled medication",
		NextDoseTime:        next,
	}, nil
}

// schedulesInWindow returns medications with a dose time within the window
// of the given moment.
func (v *Verifier) schedulesInWindow(schedules []models.MedicationSchedule, at time.Time) []models.MedicationSchedule {
	current := at.Hour()*60 + at.Minute()

	var matched []models.MedicationSchedule
	for _, schedule := range schedules {
		for _, timeStr := range schedule.Times {
			hh, mm, ok := parseClock(timeStr)
			if !ok {
				continue
			}
			scheduled := hh*60 + mm
			diff := current - scheduled
			if diff < 0 {
				diff = -diff
			}
			if diff <= v.windowMin {
				matched = append(matched, schedule)
				break
			}
		}
	}

	return matched
}

func pillMatches(pill PillInfo, schedule *models.MedicationSchedule) bool {
	return strings.EqualFold(pill.Name, schedule.MedicationName) && pill.Dosage == schedule.Dosage
}

// nextDoseTime finds the earliest scheduled time strictly after the given
// moment, rolling past times over to tomorrow.
func nextDoseTime(schedules []models.MedicationSchedule, after time.Time) *time.Time {
	var next *time.Time
	for _, schedule := range schedules {
		for _, timeStr := range schedule.Times {
			hh, mm, ok := parseClock(timeStr)
			if !ok {
				continue
			}

			dose := time.Date(after.Year(), after.Month(), after.Day(), hh, mm, 0, 0, after.Location())
			if !dose.After(after) {
				dose = dose.AddDate(0, 0, 1)
			}

			if next == nil || dose.Before(*next) {
				d := dose
				next = &d
			}
		}
	}

	return next
}

func parseClock(s string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// LogDoseTaken appends a taken dose event. This is the only writer of taken
// events; the adherence engine reads whatever it records.
func (v *Verifier) LogDoseTaken(patientID, medicationID string, timestamp time.Time, confidence float64) (*models.DoseEvent, error) {
	if confidence <= 0 {
		confidence = 1.0
	}

	event := &models.DoseEvent{
		ID:           uuid.New().String(),
		PatientID:    patientID,
		MedicationID: medicationID,
		Status:       models.StatusTaken,
		Timestamp:    timestamp,
		Confidence:   confidence,
	}

	if err := v.store.AppendDoseEvent(event); err != nil {
		return nil, fmt.Errorf("log dose taken: %w", err)
	}

	logger.Info("Dose logged",
		zap.String("patient_id", patientID),
		zap.String("medication_id", medicationID),
		zap.Float64("confidence", confidence),
	)
	return event, nil
}

// RegisterMedication stores a medication record, assigning an id when the
// caller did not provide one.
func (v *Verifier) RegisterMedication(med *models.Medication) error {
	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	med.CreatedAt = v.now()

	if err := v.store.InsertMedication(med); err != nil {
		return fmt.Errorf("register medication: %w", err)
	}

	return nil
}

// Schedule returns the patient's schedule entries.
func (v *Verifier) Schedule(patientID string) ([]models.MedicationSchedule, error) {
	schedules, err := v.store.ListSchedules(patientID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return schedules, nil
}

// AddToSchedule validates dose times and persists the schedule entry,
// returning its id.
func (v *Verifier) AddToSchedule(schedule *models.MedicationSchedule) (int, error) {
	if len(schedule.Times) == 0 {
		return 0, errors.New("add to schedule: at least one dose time is required")
	}
	for _, timeStr := range schedule.Times {
		if _, _, ok := parseClock(timeStr); !ok {
			return 0, fmt.Errorf("add to schedule: invalid dose time %q", timeStr)
		}
	}

	if schedule.StartDate.IsZero() {
		schedule.StartDate = v.now()
	}
	if schedule.Frequency == "" {
		schedule.Frequency = "once daily"
	}

	id, err := v.store.AddSchedule(schedule)
	if err != nil {
		return 0, fmt.Errorf("add to schedule: %w", err)
	}

	return id, nil
}

// ScheduleFromMedication resolves a registered medication into a schedule
// entry for the patient and persists it.
func (v *Verifier) ScheduleFromMedication(patientID, medicationID string, times []string, frequency string) (*models.MedicationSchedule, error) {
	med, err := v.store.GetMedication(medicationID)
	if err != nil {
		return nil, fmt.Errorf("schedule from medication: %w", err)
	}
	if med == nil {
		return nil, ErrMedicationNotFound
	}

	name := med.Name
	if name == "" {
		name = med.GenericName
	}
	if name == "" {
		name = "Unknown"
	}

	dosage := med.Dosage
	if dosage == "" {
		dosage = "Unknown"
	}

	schedule := &models.MedicationSchedule{
		PatientID:      patientID,
		MedicationName: name,
		Dosage:         dosage,
		Frequency:      frequency,
		Times:          times,
	}
	if _, err := v.AddToSchedule(schedule); err != nil {
		return nil, fmt.Errorf("schedule from medication: %w", err)
	}

	return schedule, nil
}

// RemoveFromSchedule deletes one schedule entry; false means it was not
// found.
func (v *Verifier) RemoveFromSchedule(patientID string, scheduleID int) (bool, error) {
	deleted, err := v.store.DeleteSchedule(patientID, scheduleID)
	if err != nil {
		return false, fmt.Errorf("remove from schedule: %w", err)
	}
	return deleted, nil
}
