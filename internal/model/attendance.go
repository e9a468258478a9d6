package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the storage format of Attendance.Date.
	DateLayout = "2006-01-02"
	// TimeLayout is the storage format of Attendance.Time.
	TimeLayout = "15:04:05"
)

// Status is the attendance state recorded for a student on a day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
)

// ParseStatus accepts the stored spelling of a status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusPresent, StatusAbsent, StatusLate} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid attendance status %q", s)
}

// Attendance represents one attendance record. At most one exists per student and date.
type Attendance struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    Status `json:"status"`
}

// Day formats t as a storage date in t's own location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}

// Clock formats t as a storage time-of-day in t's own location.
func Clock(t time.Time) string {
	return t.Format(TimeLayout)
}
