package verification

import (
	"testing"
	"time"

	"github.com/medadhere/backend/internal/storage/models"
)

type fakeStore struct {
	schedules map[string][]models.MedicationSchedule
	events    []models.DoseEvent
	meds      map[string]*models.Medication
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: make(map[string][]models.MedicationSchedule),
		meds:      make(map[string]*models.Medication),
	}
}

func (f *fakeStore) ListSchedules(patientID string) ([]models.MedicationSchedule, error) {
	return f.schedules[patientID], nil
}

func (f *fakeStore) AddSchedule(schedule *models.MedicationSchedule) (int, error) {
	f.nextID++
	schedule.ID = f.nextID
	f.schedules[schedule.PatientID] = append(f.schedules[schedule.PatientID], *schedule)
	return f.nextID, nil
}

func (f *fakeStore) DeleteSchedule(patientID string, scheduleID int) (bool, error) {
	list := f.schedules[patientID]
	for i, s := range list {
		if s.ID == scheduleID {
			f.schedules[patientID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) AppendDoseEvent(event *models.DoseEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) InsertMedication(med *models.Medication) error {
	f.meds[med.ID] = med
	return nil
}

func (f *fakeStore) GetMedication(id string) (*models.Medication, error) {
	return f.meds[id], nil
}

func aspirinSchedule(patientID string) models.MedicationSchedule {
	return models.MedicationSchedule{
		PatientID:      patientID,
		MedicationName: "Aspirin",
		Dosage:         "325mg",
		Frequency:      "twice daily",
		Times:          []string{"08:00", "20:00"},
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestVerifyNoSchedule(t *testing.T) {
	v := NewVerifier(newFakeStore(), 30)

	result, err := v.Verify("p1", PillInfo{Name: "Aspirin", Dosage: "325mg"}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsCorrect {
		t.Error("expected verification to fail without a schedule")
	}
	if result.Message != "No medication schedule found for patient" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestVerifyWindow(t *testing.T) {
	store := newFakeStore()
	store.schedules["p1"] = []models.MedicationSchedule{aspirinSchedule("p1")}
	v := NewVerifier(store, 30)

	tests := []struct {
		name    string
		at      string
		pill    PillInfo
		correct bool
		message string
	}{
		{
			"exact time and matching pill",
			"2024-01-10T08:00:00Z",
			PillInfo{Name: "aspirin", Dosage: "325mg"},
			true,
			"Correct medication for scheduled time",
		},
		{
			"window edge",
			"2024-01-10T08:30:00Z",
			PillInfo{Name: "Aspirin", Dosage: "325mg"},
			true,
			"Correct medication for scheduled time",
		},
		{
			"outside window",
			"2024-01-10T12:00:00Z",
			PillInfo{Name: "Aspirin", Dosage: "325mg"},
			false,
			"No medications scheduled at this time",
		},
		{
			"wrong dosage",
			"2024-01-10T08:00:00Z",
			PillInfo{Name: "Aspirin", Dosage: "500mg"},
			false,
			"Pill does not match scheduled medication",
		},
		{
			"wrong pill",
			"2024-01-10T20:15:00Z",
			PillInfo{Name: "Ibuprofen", Dosage: "200mg"},
			false,
			"Pill does not match scheduled medication",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, _ := time.Parse(time.RFC3339, tt.at)
			result, err := v.Verify("p1", tt.pill, at)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsCorrect != tt.correct {
				t.Errorf("expected correct=%v, got %v", tt.correct, result.IsCorrect)
			}
			if result.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, result.Message)
			}
		})
	}
}

func TestNextDoseTimeRollsOver(t *testing.T) {
	schedules := []models.MedicationSchedule{aspirinSchedule("p1")}

	// Mid-morning: next dose is this evening.
	after, _ := time.Parse(time.RFC3339, "2024-01-10T09:00:00Z")
	next := nextDoseTime(schedules, after)
	if next == nil {
		t.Fatal("expected a next dose time")
	}
	if next.Hour() != 20 || next.Day() != 10 {
		t.Errorf("expected 20:00 same day, got %v", next)
	}

	// Late evening: next dose rolls to tomorrow morning.
	after, _ = time.Parse(time.RFC3339, "2024-01-10T21:00:00Z")
	next = nextDoseTime(schedules, after)
	if next == nil {
		t.Fatal("expected a next dose time")
	}
	if next.Hour() != 8 || next.Day() != 11 {
		t.Errorf("expected 08:00 next day, got %v", next)
	}
}

func TestLogDoseTaken(t *testing.T) {
	store := newFakeStore()
	v := NewVerifier(store, 30)

	at, _ := time.Parse(time.RFC3339, "2024-01-10T08:05:00Z")
	event, err := v.LogDoseTaken("p1", "med-1", at, 0.92)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.ID == "" {
		t.Error("expected a generated event id")
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.events))
	}
	got := store.events[0]
	if got.Status != models.StatusTaken {
		t.Errorf("expected status taken, got %q", got.Status)
	}
	if got.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", got.Confidence)
	}

	// Manual logs default to full confidence.
	event, err = v.LogDoseTaken("p1", "med-1", at, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Confidence != 1.0 {
		t.Errorf("expected default confidence 1.0, got %v", event.Confidence)
	}
}

func TestAddToScheduleValidatesTimes(t *testing.T) {
	store := newFakeStore()
	v := NewVerifier(store, 30)

	schedule := aspirinSchedule("p1")
	schedule.Times = []string{"8am"}
	if _, err := v.AddToSchedule(&schedule); err == nil {
		t.Error("expected error for malformed dose time")
	}

	schedule.Times = nil
	if _, err := v.AddToSchedule(&schedule); err == nil {
		t.Error("expected error for empty dose times")
	}

	schedule.Times = []string{"08:00", "20:00"}
	id, err := v.AddToSchedule(&schedule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected a schedule id")
	}
}

func TestScheduleFromMedication(t *testing.T) {
	store := newFakeStore()
	v := NewVerifier(store, 30)

	med := &models.Medication{Name: "Metformin", Dosage: "500mg"}
	if err := v.RegisterMedication(med); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schedule, err := v.ScheduleFromMedication("p1", med.ID, []string{"09:00"}, "once daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schedule.MedicationName != "Metformin" || schedule.Dosage != "500mg" {
		t.Errorf("unexpected schedule %+v", schedule)
	}
	if schedule.ID == 0 {
		t.Error("expected persisted schedule to have an id")
	}

	listed, err := v.Schedule("p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("expected the entry to be persisted, got %d", len(listed))
	}

	if _, err := v.ScheduleFromMedication("p1", "missing", []string{"09:00"}, "once daily"); err != ErrMedicationNotFound {
		t.Errorf("expected ErrMedicationNotFound, got %v", err)
	}
}

func TestRemoveFromSchedule(t *testing.T) {
	store := newFakeStore()
	v := NewVerifier(store, 30)

	schedule := aspirinSchedule("p1")
	id, err := v.AddToSchedule(&schedule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted, err := v.RemoveFromSchedule("p1", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("expected schedule to be deleted")
	}

	deleted, err = v.RemoveFromSchedule("p1", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report not found")
	}
}
