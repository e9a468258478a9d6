package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"faceattend/internal/model"
	"faceattend/internal/repository"
)

// StudentRepository implements repository.StudentRepository for SQLite.
type StudentRepository struct {
	db *DB
}

// NewStudentRepository creates a new SQLite student repository.
func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_id, name, email, department, batch, face_encoding, photo_path, registration_date`

// Insert adds a new student. The embedding is stored as a JSON array.
func (r *StudentRepository) Insert(s *model.Student) (int64, error) {
	encoding, err := encodeEmbedding(s.Embedding)
	if err != nil {
		return 0, err
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO students (student_id, name, email, department, batch, face_encoding, photo_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.StudentID, s.Name, nullIfEmpty(s.Email), nullIfEmpty(s.Department), nullIfEmpty(s.Batch),
		encoding, nullIfEmpty(s.PhotoPath))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", repository.ErrStudentExists, s.StudentID)
		}
		return 0, fmt.Errorf("failed to insert student: %w", err)
	}

	return result.LastInsertId()
}

// Exists reports whether a student with the given identifier is enrolled.
func (r *StudentRepository) Exists(studentID string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM students WHERE student_id = ?`, studentID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check student: %w", err)
	}
	return count > 0, nil
}

// GetByStudentID retrieves a student, or nil when absent.
func (r *StudentRepository) GetByStudentID(studentID string) (*model.Student, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+studentColumns+` FROM students WHERE student_id = ?`, studentID)
	s, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// GetAll retrieves every student ordered by name.
func (r *StudentRepository) GetAll() ([]model.Student, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT ` + studentColumns + ` FROM students ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

// Search matches the term against student_id, name and department.
func (r *StudentRepository) Search(term string) ([]model.Student, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	pattern := "%" + term + "%"
	rows, err := r.db.Conn().Query(`
		SELECT `+studentColumns+` FROM students
		WHERE student_id LIKE ? OR name LIKE ? OR department LIKE ?
		ORDER BY name
	`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search students: %w", err)
	}
	defer rows.Close()

	return collectStudents(rows)
}

// Count returns the number of enrolled students.
func (r *StudentRepository) Count() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// Departments lists distinct non-empty departments.
func (r *StudentRepository) Departments() ([]string, error) {
	return r.distinct("department")
}

// Batches lists distinct non-empty batches.
func (r *StudentRepository) Batches() ([]string, error) {
	return r.distinct("batch")
}

func (r *StudentRepository) distinct(column string) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(fmt.Sprintf(`
		SELECT DISTINCT %[1]s FROM students
		WHERE %[1]s IS NOT NULL AND %[1]s != ''
		ORDER BY %[1]s
	`, column))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Update applies the non-nil fields of upd.
func (r *StudentRepository) Update(studentID string, upd model.StudentUpdate) error {
	var sets []string
	var args []interface{}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, nullIfEmpty(*upd.Email))
	}
	if upd.Department != nil {
		sets = append(sets, "department = ?")
		args = append(args, nullIfEmpty(*upd.Department))
	}
	if upd.Batch != nil {
		sets = append(sets, "batch = ?")
		args = append(args, nullIfEmpty(*upd.Batch))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, studentID)

	r.db.Lock()
	defer r.db.Unlock()

	query := "UPDATE students SET " + strings.Join(sets, ", ") + " WHERE student_id = ?"
	if _, err := r.db.Conn().Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

// Delete removes a student together with their attendance records.
func (r *StudentRepository) Delete(studentID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM attendance WHERE student_id = ?`, studentID); err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM students WHERE student_id = ?`, studentID); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*model.Student, error) {
	var s model.Student
	var email, department, batch, encoding, photo sql.NullString
	err := row.Scan(&s.ID, &s.StudentID, &s.Name, &email, &department, &batch, &encoding, &photo, &s.RegisteredAt)
	if err != nil {
		return nil, err
	}
	s.Email = email.String
	s.Department = department.String
	s.Batch = batch.String
	s.PhotoPath = photo.String

	if encoding.Valid && encoding.String != "" {
		if err := json.Unmarshal([]byte(encoding.String), &s.Embedding); err != nil {
			return nil, fmt.Errorf("invalid face encoding for %s: %w", s.StudentID, err)
		}
	}
	return &s, nil
}

func collectStudents(rows *sql.Rows) ([]model.Student, error) {
	var students []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func encodeEmbedding(embedding []float64) (interface{}, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding: %w", err)
	}
	return string(data), nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
