package adherence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medadhere/backend/internal/storage/models"
	"github.com/medadhere/backend/pkg/logger"
)

// expectedDosesPerDay is a deliberate simplification: the rate calculation
// assumes two doses per day instead of weighting by each medication's
// scheduled frequency.
const expectedDosesPerDay = 2

// EventStore supplies the persisted dose events the engine computes over and
// accepts appended caregiver alerts. The engine never mutates events.
type EventStore interface {
	ListDoseEvents(patientID string) ([]models.DoseEvent, error)
	AppendAlert(alert *models.CaregiverAlert) error
}

type Engine struct {
	store EventStore
	now   func() time.Time
}

func NewEngine(store EventStore) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
	}
}

type Stats struct {
	PatientID            string     `json:"patient_id"`
	OverallAdherenceRate float64    `json:"overall_adherence_rate"`
	DosesTakenToday      int        `json:"doses_taken_today"`
	DosesScheduledToday  int        `json:"doses_scheduled_today"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	LastDoseTime         *time.Time `json:"last_dose_time,omitempty"`
}

type MissedDose struct {
	PatientID      string    `json:"patient_id"`
	MedicationName string    `json:"medication_name"`
	ScheduledTime  time.Time `json:"scheduled_time"`
	MissedTime     time.Time `json:"missed_time"`
	Severity       string    `json:"severity"`
}

type DailyAdherence struct {
	Date           string  `json:"date"`
	DosesTaken     int     `json:"doses_taken"`
	DosesScheduled int     `json:"doses_scheduled"`
	AdherenceRate  float64 `json:"adherence_rate"`
}

type ReportPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type Report struct {
	PatientID           string             `json:"patient_id"`
	ReportPeriod        ReportPeriod       `json:"report_period"`
	OverallStats        Stats              `json:"overall_stats"`
	DailyAdherence      []DailyAdherence   `json:"daily_adherence"`
	MissedDoses         []MissedDose       `json:"missed_doses"`
	MedicationBreakdown map[string]float64 `json:"medication_breakdown"`
	Recommendations     []string           `json:"recommendations"`
}

type Patterns struct {
	WeekendEffect    bool    `json:"weekend_effect"`
	MorningVsEvening string  `json:"morning_vs_evening"`
	ConsistencyScore float64 `json:"consistency_score"`
}

type TrendAnalysis struct {
	PatientID      string    `json:"patient_id"`
	TrendDirection string    `json:"trend_direction"`
	WeeklyAverages []float64 `json:"weekly_averages"`
	Patterns       Patterns  `json:"patterns"`
	RiskFactors    []string  `json:"risk_factors"`
	Insights       []string  `json:"insights"`
}

// ComputeStats derives adherence statistics from the given event set. The
// range bounds only the adherence-rate numerator; streaks and the today
// counters always consider the full history relative to the current date.
func (e *Engine) ComputeStats(patientID string, events []models.DoseEvent, start, end time.Time) Stats {
	if len(events) == 0 {
		return Stats{PatientID: patientID}
	}

	today := dateKey(e.now())

	takenToday := 0
	var lastDose *time.Time
	for i := range events {
		if events[i].Status != models.StatusTaken {
			continue
		}
		if dateKey(events[i].Timestamp) == today {
			takenToday++
		}
		if lastDose == nil || events[i].Timestamp.After(*lastDose) {
			t := events[i].Timestamp
			lastDose = &t
		}
	}

	return Stats{
		PatientID:            patientID,
		OverallAdherenceRate: adherenceRate(events, start, end),
		DosesTakenToday:      takenToday,
		DosesScheduledToday:  expectedDosesPerDay,
		CurrentStreak:        e.currentStreak(events),
		LongestStreak:        longestStreak(events),
		LastDoseTime:         lastDose,
	}
}

// CurrentStats reloads the patient's events and computes statistics over the
// trailing seven days.
func (e *Engine) CurrentStats(patientID string) (Stats, error) {
	events, err := e.store.ListDoseEvents(patientID)
	if err != nil {
		return Stats{}, fmt.Errorf("current stats: %w", err)
	}

	now := e.now()
	start := startOfDay(now.AddDate(0, 0, -7))
	end := endOfDay(now)

	return e.ComputeStats(patientID, events, start, end), nil
}

// adherenceRate is taken-in-range over expected doses for the inclusive day
// span, as a percentage rounded to two decimals. Never negative; zero when
// the span is empty.
func adherenceRate(events []models.DoseEvent, start, end time.Time) float64 {
	taken := 0
	for i := range events {
		if events[i].Status != models.StatusTaken {
			continue
		}
		if inRange(events[i].Timestamp, start, end) {
			taken++
		}
	}

	days := daysInclusive(start, end)
	expected := days * expectedDosesPerDay
	if expected <= 0 {
		return 0
	}

	return round2(float64(taken) / float64(expected) * 100)
}

// currentStreak counts consecutive calendar days ending today that contain at
// least one taken dose. A day without a taken dose today zeroes the streak,
// even after a perfect run.
func (e *Engine) currentStreak(events []models.DoseEvent) int {
	takenDates := make(map[string]bool)
	for i := range events {
		if events[i].Status == models.StatusTaken {
			takenDates[dateKey(events[i].Timestamp)] = true
		}
	}

	day := e.now()
	if !takenDates[dateKey(day)] {
		return 0
	}

	streak := 1
	for {
		day = day.AddDate(0, 0, -1)
		if !takenDates[dateKey(day)] {
			break
		}
		streak++
	}

	return streak
}

// longestStreak scans the full history: distinct calendar dates with a taken
// dose, counting the longest run of consecutive days. Same-day repeats do not
// extend the streak.
func longestStreak(events []models.DoseEvent) int {
	seen := make(map[string]bool)
	var dates []time.Time
	for i := range events {
		if events[i].Status != models.StatusTaken {
			continue
		}
		key := dateKey(events[i].Timestamp)
		if seen[key] {
			continue
		}
		seen[key] = true
		d, _ := time.Parse("2006-01-02", key)
		dates = append(dates, d)
	}

	if len(dates) == 0 {
		return 0
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, current := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) == 24*time.Hour {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}

	return longest
}

// missedDoses filters to explicit missed events inside [start, end]. Misses
// are never inferred from schedule gaps.
func missedDoses(patientID string, events []models.DoseEvent, start, end time.Time, medName func(string) string) []MissedDose {
	missed := make([]MissedDose, 0)
	for i := range events {
		e := &events[i]
		if e.Status != models.StatusMissed || !inRange(e.Timestamp, start, end) {
			continue
		}

		name := "Unknown"
		if e.MedicationID != "" && medName != nil {
			if n := medName(e.MedicationID); n != "" {
				name = n
			}
		}

		scheduled := e.Timestamp
		if e.ScheduledTime != nil {
			scheduled = *e.ScheduledTime
		}

		severity := e.Severity
		if severity == "" {
			severity = "medium"
		}

		missed = append(missed, MissedDose{
			PatientID:      patientID,
			MedicationName: name,
			ScheduledTime:  scheduled,
			MissedTime:     e.Timestamp,
			Severity:       severity,
		})
	}

	return missed
}

// MissedDoses reloads the patient's events and returns the explicit missed
// entries within the range.
func (e *Engine) MissedDoses(patientID string, start, end time.Time) ([]MissedDose, error) {
	events, err := e.store.ListDoseEvents(patientID)
	if err != nil {
		return nil, fmt.Errorf("missed doses: %w", err)
	}

	return missedDoses(patientID, events, start, end, e.medicationName()), nil
}

// GenerateReport reloads the latest events and derives the full report from
// that single snapshot. Nothing is cached between calls.
func (e *Engine) GenerateReport(patientID string, start, end time.Time) (*Report, error) {
	events, err := e.store.ListDoseEvents(patientID)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	stats := e.ComputeStats(patientID, events, start, end)
	missed := missedDoses(patientID, events, start, end, e.medicationName())

	report := &Report{
		PatientID:           patientID,
		ReportPeriod:        ReportPeriod{StartDate: start, EndDate: end},
		OverallStats:        stats,
		DailyAdherence:      dailyAdherence(events, start, end),
		MissedDoses:         missed,
		MedicationBreakdown: medicationBreakdown(events, start, end),
		Recommendations:     recommendations(stats, missed),
	}

	logger.Debug("Adherence report generated",
		zap.String("patient_id", patientID),
		zap.Float64("rate", stats.OverallAdherenceRate),
		zap.Int("missed", len(missed)),
	)
	return report, nil
}

func dailyAdherence(events []models.DoseEvent, start, end time.Time) []DailyAdherence {
	takenPerDay := make(map[string]int)
	for i := range events {
		if events[i].Status == models.StatusTaken {
			takenPerDay[dateKey(events[i].Timestamp)]++
		}
	}

	daily := make([]DailyAdherence, 0)
	endKey := dateKey(end)
	for day := startOfDay(start); ; day = day.AddDate(0, 0, 1) {
		key := dateKey(day)
		taken := takenPerDay[key]

		rate := 100.0
		if taken <= expectedDosesPerDay {
			rate = float64(taken) / float64(expectedDosesPerDay) * 100
		}

		daily = append(daily, DailyAdherence{
			Date:           key,
			DosesTaken:     taken,
			DosesScheduled: expectedDosesPerDay,
			AdherenceRate:  rate,
		})

		if key == endKey {
			break
		}
	}

	return daily
}

// medicationBreakdown is the per-medication taken percentage over events in
// range. Medications with no logged events in range are omitted.
func medicationBreakdown(events []models.DoseEvent, start, end time.Time) map[string]float64 {
	type counts struct{ taken, total int }
	perMed := make(map[string]*counts)

	for i := range events {
		if !inRange(events[i].Timestamp, start, end) {
			continue
		}
		medID := events[i].MedicationID
		if medID == "" {
			medID = "unknown"
		}
		c := perMed[medID]
		if c == nil {
			c = &counts{}
			perMed[medID] = c
		}
		c.total++
		if events[i].Status == models.StatusTaken {
			c.taken++
		}
	}

	breakdown := make(map[string]float64, len(perMed))
	for medID, c := range perMed {
		breakdown[medID] = round2(float64(c.taken) / float64(c.total) * 100)
	}

	return breakdown
}

// recommendations applies fixed threshold rules in order. An all-zero stat
// set with no missed doses yields an empty list rather than generic praise.
func recommendations(stats Stats, missed []MissedDose) []string {
	recs := make([]string, 0)

	if stats.OverallAdherenceRate == 0 && stats.DosesTakenToday == 0 && len(missed) == 0 {
		return recs
	}

	if stats.OverallAdherenceRate < 80 {
		recs = append(recs, "Consider setting medication reminders or alarms")
	}
	if len(missed) > 2 {
		recs = append(recs, "Review medication schedule with healthcare provider")
	}
	if stats.CurrentStreak < 3 {
		recs = append(recs, "Focus on building consistent daily routine")
	}
	if len(recs) == 0 {
		recs = append(recs, "Great job maintaining medication adherence!")
	}

	return recs
}

// AnalyzeTrends splits [start, end) into consecutive 7-day windows (the last
// may be shorter) and derives direction, consistency and risk factors from
// the per-window adherence rates.
func (e *Engine) AnalyzeTrends(patientID string, start, end time.Time) (*TrendAnalysis, error) {
	events, err := e.store.ListDoseEvents(patientID)
	if err != nil {
		return nil, fmt.Errorf("analyze trends: %w", err)
	}

	weekly := make([]float64, 0)
	for cur := start; cur.Before(end); {
		weekEnd := cur.AddDate(0, 0, 7)
		if weekEnd.After(end) {
			weekEnd = end
		}
		weekly = append(weekly, adherenceRate(events, cur, weekEnd))
		cur = weekEnd
	}

	direction := "insufficient_data"
	if len(weekly) >= 2 {
		switch {
		case weekly[len(weekly)-1] > weekly[0]:
			direction = "improving"
		case weekly[len(weekly)-1] < weekly[0]:
			direction = "declining"
		default:
			direction = "stable"
		}
	}

	consistency := sampleStdDev(weekly)

	riskFactors := make([]string, 0)
	if len(weekly) > 0 && mean(weekly) < 70 {
		riskFactors = append(riskFactors, "Low overall adherence")
	}
	if consistency > 15 {
		riskFactors = append(riskFactors, "High variability in adherence")
	}

	insights := make([]string, 0)
	switch direction {
	case "improving":
		insights = append(insights, "Adherence is improving over time")
	case "declining":
		insights = append(insights, "Adherence appears to be declining - intervention may be needed")
	}

	return &TrendAnalysis{
		PatientID:      patientID,
		TrendDirection: direction,
		WeeklyAverages: weekly,
		Patterns: Patterns{
			MorningVsEvening: "similar",
			ConsistencyScore: consistency,
		},
		RiskFactors: riskFactors,
		Insights:    insights,
	}, nil
}

// SendCaregiverAlert assigns an id, stamps the alert and appends it to the
// alert log. The id is returned only after the append succeeded. No real
// delivery happens.
func (e *Engine) SendCaregiverAlert(alert *models.CaregiverAlert) (string, error) {
	alert.ID = uuid.New().String()
	if alert.Timestamp.IsZero() {
		alert.Timestamp = e.now()
	}
	alert.Sent = true

	if err := e.store.AppendAlert(alert); err != nil {
		return "", fmt.Errorf("send caregiver alert: %w", err)
	}

	logger.Info("Caregiver alert sent",
		zap.String("alert_id", alert.ID),
		zap.String("patient_id", alert.PatientID),
	)
	return alert.ID, nil
}

// RecentDoses reloads the patient's events and returns the most recent ones,
// newest first.
func (e *Engine) RecentDoses(patientID string, limit int) ([]models.DoseEvent, error) {
	events, err := e.store.ListDoseEvents(patientID)
	if err != nil {
		return nil, fmt.Errorf("recent doses: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

// medicationName resolves medication ids to display names when the store can
// do so; missing lookups fall back to "Unknown" in missedDoses.
func (e *Engine) medicationName() func(string) string {
	resolver, ok := e.store.(interface {
		GetMedication(id string) (*models.Medication, error)
	})
	if !ok {
		return nil
	}
	return func(id string) string {
		med, err := resolver.GetMedication(id)
		if err != nil || med == nil {
			return ""
		}
		return med.Name
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func daysInclusive(start, end time.Time) int {
	s, _ := time.Parse("2006-01-02", dateKey(start))
	e, _ := time.Parse("2006-01-02", dateKey(end))
	return int(e.Sub(s).Hours()/24) + 1
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
