package repository

import (
	"errors"

	"faceattend/internal/dto"
	"faceattend/internal/model"
)

// ErrStudentExists is returned by StudentRepository.Insert for a duplicate student_id.
var ErrStudentExists = errors.New("student already exists")

// StudentRepository defines the interface for student roster operations.
type StudentRepository interface {
	// Create operations
	Insert(s *model.Student) (int64, error)

	// Read operations
	Exists(studentID string) (bool, error)
	GetByStudentID(studentID string) (*model.Student, error)
	GetAll() ([]model.Student, error)
	Search(term string) ([]model.Student, error)
	Count() (int, error)
	Departments() ([]string, error)
	Batches() ([]string, error)

	// Update operations
	Update(studentID string, upd model.StudentUpdate) error

	// Delete operations
	Delete(studentID string) error
}

// AttendanceRepository defines the interface for attendance operations.
// Empty date and time arguments default to the current local day and time.
type AttendanceRepository interface {
	// Create operations; ok is false when a record for that student and day already exists.
	Mark(studentID, date, clock string, status model.Status) (ok bool, err error)

	// Read operations
	IsMarked(studentID, date string) (bool, error)
	GetByDate(date string) ([]dto.AttendanceEntry, error)
	GetAll(filter *dto.AttendanceFilter) ([]dto.AttendanceEntry, error)
	Recent(limit int) ([]dto.AttendanceEntry, error)
	CountByStatus(date string, status model.Status) (int, error)

	// Update operations
	UpdateStatus(studentID, date string, status model.Status) error

	// Delete operations
	Delete(studentID, date string) error
}
