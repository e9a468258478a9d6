package dto

// Statistics summarises attendance for one day.
type Statistics struct {
	Date          string  `json:"date"`
	TotalStudents int     `json:"total_students"`
	Present       int     `json:"present"`
	Absent        int     `json:"absent"`
	Percentage    float64 `json:"percentage"`
}

// Defaulter is a student whose attendance percentage is below a threshold.
type Defaulter struct {
	StudentID  string  `json:"student_id"`
	Name       string  `json:"name"`
	Department string  `json:"department,omitempty"`
	Batch      string  `json:"batch,omitempty"`
	Percentage float64 `json:"attendance_percentage"`
}
