package dto

import (
	"encoding/json"

	"faceattend/internal/model"
)

// AttendanceEntry is an attendance record joined with the student's roster data.
type AttendanceEntry struct {
	model.Attendance
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Batch      string `json:"batch,omitempty"`
}

// MarshalJSON adds a combined timestamp field for list views.
func (e AttendanceEntry) MarshalJSON() ([]byte, error) {
	type Alias AttendanceEntry
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		Alias
	}{
		Timestamp: e.Date + " " + e.Time,
		Alias:     (Alias)(e),
	})
}
