package attendance

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"faceattend/internal/dto"
	"faceattend/internal/logger"
	"faceattend/internal/model"
	"faceattend/internal/repository"
)

var (
	// ErrStudentNotFound is returned for operations on a student that is not enrolled.
	ErrStudentNotFound = errors.New("student not found")
	// ErrAlreadyMarked is returned by manual entry when the day already has a record.
	ErrAlreadyMarked = errors.New("attendance already recorded for this date")
)

// Manager provides the operator-facing attendance operations: manual entry,
// corrections, listings and statistics.
type Manager struct {
	students repository.StudentRepository
	records  repository.AttendanceRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewManager creates an attendance manager.
func NewManager(students repository.StudentRepository, records repository.AttendanceRepository, logger *logger.Logger) *Manager {
	return &Manager{students: students, records: records, logger: logger, now: time.Now}
}

// MarkManual records attendance for an explicit date and time.
func (m *Manager) MarkManual(studentID, date, clock string, status model.Status) error {
	if err := checkDate(date); err != nil {
		return err
	}
	if _, err := time.Parse(model.TimeLayout, clock); err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM:SS", clock)
	}

	exists, err := m.students.Exists(studentID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}

	ok, err := m.records.Mark(studentID, date, clock, status)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrAlreadyMarked, studentID, date)
	}

	m.logger.Info("Manual attendance recorded: %s on %s at %s (%s)", studentID, date, clock, status)
	return nil
}

// UpdateStatus changes the status of an existing record.
func (m *Manager) UpdateStatus(studentID, date string, status model.Status) error {
	if err := checkDate(date); err != nil {
		return err
	}
	if err := m.records.UpdateStatus(studentID, date, status); err != nil {
		return fmt.Errorf("failed to update %s on %s: %w", studentID, date, err)
	}
	m.logger.Info("Attendance status for %s on %s set to %s", studentID, date, status)
	return nil
}

// Delete removes the record of a student for a day.
func (m *Manager) Delete(studentID, date string) error {
	if err := checkDate(date); err != nil {
		return err
	}
	if err := m.records.Delete(studentID, date); err != nil {
		return fmt.Errorf("failed to delete %s on %s: %w", studentID, date, err)
	}
	m.logger.Info("Attendance for %s on %s deleted", studentID, date)
	return nil
}

// Today returns today's records.
func (m *Manager) Today() ([]dto.AttendanceEntry, error) {
	return m.records.GetByDate(model.Day(m.now()))
}

// ByDate returns the records of one day.
func (m *Manager) ByDate(date string) ([]dto.AttendanceEntry, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	return m.records.GetByDate(date)
}

// List returns records matching filter.
func (m *Manager) List(filter *dto.AttendanceFilter) ([]dto.AttendanceEntry, error) {
	return m.records.GetAll(filter)
}

// Recent returns the latest limit records.
func (m *Manager) Recent(limit int) ([]dto.AttendanceEntry, error) {
	return m.records.Recent(limit)
}

// Statistics summarises one day; an empty date means today. Only Present
// records count as present.
func (m *Manager) Statistics(date string) (*dto.Statistics, error) {
	if date == "" {
		date = model.Day(m.now())
	} else if err := checkDate(date); err != nil {
		return nil, err
	}

	total, err := m.students.Count()
	if err != nil {
		return nil, err
	}
	present, err := m.records.CountByStatus(date, model.StatusPresent)
	if err != nil {
		return nil, err
	}

	stats := &dto.Statistics{
		Date:          date,
		TotalStudents: total,
		Present:       present,
		Absent:        total - present,
	}
	if total > 0 {
		stats.Percentage = round2(float64(present) / float64(total) * 100)
	}
	return stats, nil
}

// StudentPercentage is the share of a student's records, optionally limited
// to a date range, that are Present. A student with no records scores 0.
func (m *Manager) StudentPercentage(studentID, startDate, endDate string) (float64, error) {
	records, err := m.records.GetAll(&dto.AttendanceFilter{
		StudentID: studentID,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	present := 0
	for _, r := range records {
		if r.Status == model.StatusPresent {
			present++
		}
	}
	return round2(float64(present) / float64(len(records)) * 100), nil
}

// Defaulters lists students whose percentage is below threshold, lowest first.
func (m *Manager) Defaulters(threshold float64, startDate, endDate string) ([]dto.Defaulter, error) {
	students, err := m.students.GetAll()
	if err != nil {
		return nil, err
	}

	defaulters := []dto.Defaulter{}
	for _, s := range students {
		pct, err := m.StudentPercentage(s.StudentID, startDate, endDate)
		if err != nil {
			return nil, err
		}
		if pct < threshold {
			defaulters = append(defaulters, dto.Defaulter{
				StudentID:  s.StudentID,
				Name:       s.Name,
				Department: s.Department,
				Batch:      s.Batch,
				Percentage: pct,
			})
		}
	}

	sort.SliceStable(defaulters, func(i, j int) bool {
		return defaulters[i].Percentage < defaulters[j].Percentage
	})
	return defaulters, nil
}

func checkDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
