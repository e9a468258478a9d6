package dto

// AttendanceFilter narrows attendance listings. Dates use model.DateLayout; empty means unbounded.
type AttendanceFilter struct {
	StudentID  string
	StartDate  string
	EndDate    string
	Department string
	Batch      string
	Limit      int
}
