package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/medadhere/backend/internal/adherence"
	"github.com/medadhere/backend/internal/events"
	"github.com/medadhere/backend/internal/identification"
	"github.com/medadhere/backend/internal/ingestiondetect"
	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/internal/verification"
)

type fakeStore struct {
	events    []models.DoseEvent
	alerts    []models.CaregiverAlert
	schedules map[int]models.MedicationSchedule
	meds      map[string]models.Medication
	pills     map[string]models.PillRecord
	nextID    int
	cleared   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schedules: make(map[int]models.MedicationSchedule),
		meds:      make(map[string]models.Medication),
		pills:     make(map[string]models.PillRecord),
		nextID:    1,
	}
}

func (f *fakeStore) ListDoseEvents(patientID string) ([]models.DoseEvent, error) {
	var out []models.DoseEvent
	for _, e := range f.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendDoseEvent(event *models.DoseEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) AppendAlert(alert *models.CaregiverAlert) error {
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeStore) ListSchedules(patientID string) ([]models.MedicationSchedule, error) {
	var out []models.MedicationSchedule
	for _, s := range f.schedules {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) AddSchedule(schedule *models.MedicationSchedule) (int, error) {
	id := f.nextID
	f.nextID++
	schedule.ID = id
	f.schedules[id] = *schedule
	return id, nil
}

func (f *fakeStore) DeleteSchedule(patientID string, scheduleID int) (bool, error) {
	s, ok := f.schedules[scheduleID]
	if !ok || s.PatientID != patientID {
		return false, nil
	}
	delete(f.schedules, scheduleID)
	return true, nil
}

func (f *fakeStore) InsertMedication(med *models.Medication) error {
	f.meds[med.ID] = *med
	return nil
}

func (f *fakeStore) GetMedication(id string) (*models.Medication, error) {
	med, ok := f.meds[id]
	if !ok {
		return nil, nil
	}
	return &med, nil
}

func (f *fakeStore) GetPill(key string) (*models.PillRecord, error) {
	pill, ok := f.pills[key]
	if !ok {
		return nil, nil
	}
	return &pill, nil
}

func (f *fakeStore) ListPills() ([]models.PillRecord, error) {
	var out []models.PillRecord
	for _, p := range f.pills {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) ClearAll() error {
	f.cleared = true
	f.events = nil
	f.alerts = nil
	f.schedules = map[int]models.MedicationSchedule{}
	return nil
}

func (f *fakeStore) UpsertPill(pill *models.PillRecord) error {
	f.pills[pill.Key] = *pill
	return nil
}

func newTestApp(store *fakeStore) (*fiber.App, *events.Hub) {
	engine := adherence.NewEngine(store)
	verifier := verification.NewVerifier(store, 30)
	identifier := identification.NewIdentifier(store, 0.7)
	detector := ingestiondetect.NewDetector(0.75)
	hub := events.NewHub()

	adherenceHandler := NewAdherenceHandler(engine, hub)
	medicationHandler := NewMedicationHandler(verifier, detector, hub)
	pillHandler := NewPillHandler(identifier, nil)
	adminHandler := NewAdminHandler(store)

	app := fiber.New()
	api := app.Group("/api/v1")

	api.Get("/adherence/report/:patientId", adherenceHandler.GetReport)
	api.Get("/adherence/stats/:patientId", adherenceHandler.GetStats)
	api.Get("/adherence/missed-doses/:patientId", adherenceHandler.GetMissedDoses)
	api.Post("/adherence/alert", adherenceHandler.SendAlert)
	api.Get("/adherence/trends/:patientId", adherenceHandler.GetTrends)
	api.Get("/adherence/doses/:patientId", adherenceHandler.GetRecentDoses)

	api.Post("/medications", medicationHandler.CreateMedication)
	api.Post("/medications/verify", medicationHandler.VerifyPill)
	api.Post("/medications/confirm-ingestion", medicationHandler.ConfirmIngestion)
	api.Get("/medications/schedule/:patientId", medicationHandler.GetSchedule)
	api.Post("/medications/schedule", medicationHandler.AddScheduleEntry)
	api.Delete("/medications/schedule/:patientId/:scheduleId", medicationHandler.RemoveScheduleEntry)

	api.Post("/pills/identify", pillHandler.Identify)
	api.Get("/pills/database", pillHandler.GetDatabase)
	api.Get("/pills/search", pillHandler.Search)
	api.Get("/pills/lookup", pillHandler.Lookup)
	api.Post("/pills/label-scan", pillHandler.ScanLabel)

	api.Post("/admin/clear-data", adminHandler.ClearData)
	api.Post("/admin/pills", adminHandler.AddPill)

	return app, hub
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGetStatsEmptyPatient(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("GET", "/api/v1/adherence/stats/patient-1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var stats adherence.Stats
	decodeBody(t, resp, &stats)
	if stats.PatientID != "patient-1" {
		t.Errorf("patient_id = %q", stats.PatientID)
	}
	if stats.OverallAdherenceRate != 0 {
		t.Errorf("rate = %v, want 0", stats.OverallAdherenceRate)
	}
}

func TestGetReport(t *testing.T) {
	store := newFakeStore()
	store.events = append(store.events, models.DoseEvent{
		ID:        "evt-1",
		PatientID: "patient-1",
		Status:    models.StatusTaken,
		Timestamp: time.Now().Add(-2 * time.Hour),
	})
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("GET", "/api/v1/adherence/report/patient-1?days=7", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var report adherence.Report
	decodeBody(t, resp, &report)
	if report.PatientID != "patient-1" {
		t.Errorf("patient_id = %q", report.PatientID)
	}
	if len(report.DailyAdherence) == 0 {
		t.Error("expected daily breakdown")
	}
}

func TestGetReportReflectsNewEvents(t *testing.T) {
	store := newFakeStore()
	store.events = append(store.events, models.DoseEvent{
		ID:        "evt-1",
		PatientID: "patient-1",
		Status:    models.StatusTaken,
		Timestamp: time.Now().Add(-2 * time.Hour),
	})
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("GET", "/api/v1/adherence/report/patient-1?days=7", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var first adherence.Report
	decodeBody(t, resp, &first)
	if len(first.MissedDoses) != 0 {
		t.Fatalf("missed doses = %d, want 0", len(first.MissedDoses))
	}

	// A missed dose recorded out of band must show up on the very next
	// report call.
	store.events = append(store.events, models.DoseEvent{
		ID:        "evt-2",
		PatientID: "patient-1",
		Status:    models.StatusMissed,
		Timestamp: time.Now().Add(-time.Hour),
	})

	resp, err = app.Test(jsonRequest("GET", "/api/v1/adherence/report/patient-1?days=7", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var second adherence.Report
	decodeBody(t, resp, &second)
	if len(second.MissedDoses) != 1 {
		t.Errorf("missed doses = %d, want 1", len(second.MissedDoses))
	}
}

func TestSendAlert(t *testing.T) {
	store := newFakeStore()
	app, hub := newTestApp(store)

	ch, cancel := hub.Subscribe("patient-1")
	defer cancel()

	resp, err := app.Test(jsonRequest("POST", "/api/v1/adherence/alert", map[string]string{
		"patient_id":        "patient-1",
		"caregiver_contact": "caregiver@example.com",
		"alert_type":        "missed_dose",
		"message":           "Missed evening dose",
		"severity":          "high",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		AlertID string `json:"alert_id"`
		Success bool   `json:"success"`
	}
	decodeBody(t, resp, &body)
	if body.AlertID == "" || !body.Success {
		t.Errorf("body = %+v", body)
	}
	if len(store.alerts) != 1 {
		t.Fatalf("stored alerts = %d, want 1", len(store.alerts))
	}

	select {
	case ev := <-ch:
		if ev.Type != events.EventCaregiverAlert {
			t.Errorf("event type = %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("alert event not published")
	}
}

func TestSendAlertValidation(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/adherence/alert", map[string]string{
		"alert_type": "missed_dose",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateMedication(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications", map[string]string{
		"name":   "Lisinopril",
		"dosage": "10mg",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &body)
	if body.ID == "" {
		t.Fatal("expected generated medication id")
	}
	if _, ok := store.meds[body.ID]; !ok {
		t.Error("medication not stored")
	}
}

func TestCreateMedicationRequiresName(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications", map[string]string{
		"dosage": "10mg",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVerifyPillNoSchedule(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/verify", map[string]interface{}{
		"patient_id": "patient-1",
		"pill_info":  map[string]string{"name": "Aspirin", "dosage": "325mg"},
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result verification.VerifyResult
	decodeBody(t, resp, &result)
	if result.IsCorrect {
		t.Error("expected incorrect with empty schedule")
	}
}

func contrastFrameB64() string {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if (x/16+y/16)%2 == 0 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestConfirmIngestionLogsDose(t *testing.T) {
	store := newFakeStore()
	app, hub := newTestApp(store)

	ch, cancel := hub.Subscribe("patient-1")
	defer cancel()

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/confirm-ingestion", map[string]string{
		"patient_id":    "patient-1",
		"medication_id": "med-1",
		"image_data":    contrastFrameB64(),
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Ingested bool    `json:"ingested"`
		DoseID   string  `json:"dose_id"`
		Conf     float64 `json:"confidence"`
	}
	decodeBody(t, resp, &body)
	if !body.Ingested || body.DoseID == "" {
		t.Fatalf("body = %+v", body)
	}
	if len(store.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(store.events))
	}
	if store.events[0].Status != models.StatusTaken {
		t.Errorf("status = %q", store.events[0].Status)
	}
	if store.events[0].Confidence != body.Conf {
		t.Errorf("logged confidence %v != reported %v", store.events[0].Confidence, body.Conf)
	}

	select {
	case ev := <-ch:
		if ev.Type != events.EventDoseLogged {
			t.Errorf("event type = %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("dose event not published")
	}
}

func TestConfirmIngestionHonorsTimestamp(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	at := time.Now().Add(-3 * time.Hour).Truncate(time.Second)
	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/confirm-ingestion", map[string]string{
		"patient_id":    "patient-1",
		"medication_id": "med-1",
		"image_data":    contrastFrameB64(),
		"timestamp":     at.Format(time.RFC3339),
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(store.events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(store.events))
	}
	if !store.events[0].Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", store.events[0].Timestamp, at)
	}

	resp, err = app.Test(jsonRequest("POST", "/api/v1/medications/confirm-ingestion", map[string]string{
		"patient_id":    "patient-1",
		"medication_id": "med-1",
		"image_data":    contrastFrameB64(),
		"timestamp":     "yesterday",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestConfirmIngestionRejectsGarbage(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/confirm-ingestion", map[string]string{
		"patient_id":    "patient-1",
		"medication_id": "med-1",
		"image_data":    "%%%",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(store.events) != 0 {
		t.Error("no dose should be logged on failure")
	}
}

func TestScheduleLifecycle(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/schedule", map[string]interface{}{
		"patient_id":      "patient-1",
		"medication_name": "Lisinopril",
		"dosage":          "10mg",
		"times":           []string{"08:00", "20:00"},
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	var created models.MedicationSchedule
	decodeBody(t, resp, &created)
	if created.ID == 0 {
		t.Fatal("expected schedule id")
	}

	resp, err = app.Test(jsonRequest("GET", "/api/v1/medications/schedule/patient-1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var listBody struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listBody)
	if listBody.Count != 1 {
		t.Errorf("schedule count = %d, want 1", listBody.Count)
	}

	resp, err = app.Test(httptest.NewRequest("DELETE",
		"/api/v1/medications/schedule/patient-1/1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("DELETE",
		"/api/v1/medications/schedule/patient-1/1", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestScheduleWireFormat(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/schedule", map[string]interface{}{
		"patient_id":      "patient-1",
		"medication_name": "Lisinopril",
		"dosage":          "10mg",
		"times":           []string{"08:00"},
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var raw map[string]interface{}
	decodeBody(t, resp, &raw)
	for _, key := range []string{"id", "patient_id", "medication_name", "times"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("response missing %q key: %v", key, raw)
		}
	}
	for _, key := range []string{"PatientID", "MedicationName"} {
		if _, ok := raw[key]; ok {
			t.Errorf("response has Go field name %q: %v", key, raw)
		}
	}
}

func TestScheduleFromUnknownMedication(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/medications/schedule", map[string]interface{}{
		"patient_id":    "patient-1",
		"medication_id": "missing",
		"times":         []string{"08:00"},
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPillIdentifyRequiresFile(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/pills/identify", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPillIdentifyMultipart(t *testing.T) {
	store := newFakeStore()
	store.pills["aspirin_325mg"] = models.PillRecord{
		Key: "aspirin_325mg", Name: "Aspirin", Dosage: "325mg",
	}
	app, _ := newTestApp(store)

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{250, 250, 250, 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "pill.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(pngBuf.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/api/v1/pills/identify", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result struct {
		Identified bool   `json:"identified"`
		Key        string `json:"key"`
	}
	decodeBody(t, resp, &result)
	if !result.Identified || result.Key != "aspirin_325mg" {
		t.Errorf("result = %+v", result)
	}
}

func TestPillSearchRequiresCriteria(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("GET", "/api/v1/pills/search", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPillLookupDisabled(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("GET", "/api/v1/pills/lookup?name=aspirin", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestLabelScanReturnsCandidates(t *testing.T) {
	app, _ := newTestApp(newFakeStore())

	resp, err := app.Test(jsonRequest("POST", "/api/v1/pills/label-scan", map[string]string{
		"text": "Take one tablet daily LISINOPRIL 10 MG",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Candidates []string `json:"candidates"`
	}
	decodeBody(t, resp, &body)
	found := false
	for _, c := range body.Candidates {
		if strings.EqualFold(c, "lisinopril") {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates = %v, want LISINOPRIL", body.Candidates)
	}
}

func TestClearDataRequiresConfirmation(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/admin/clear-data", map[string]bool{
		"confirm": false,
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if store.cleared {
		t.Error("data cleared without confirmation")
	}

	resp, err = app.Test(jsonRequest("POST", "/api/v1/admin/clear-data", map[string]bool{
		"confirm": true,
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !store.cleared {
		t.Error("data not cleared")
	}
}

func TestAdminAddPill(t *testing.T) {
	store := newFakeStore()
	app, _ := newTestApp(store)

	resp, err := app.Test(jsonRequest("POST", "/api/v1/admin/pills", map[string]string{
		"key":    "aspirin_325mg",
		"name":   "Aspirin",
		"dosage": "325mg",
	}))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, ok := store.pills["aspirin_325mg"]; !ok {
		t.Error("pill not stored")
	}
}
