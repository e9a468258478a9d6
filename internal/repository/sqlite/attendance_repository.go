package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"faceattend/internal/dto"
	"faceattend/internal/model"
)

// AttendanceRepository implements repository.AttendanceRepository for SQLite.
type AttendanceRepository struct {
	db  *DB
	now func() time.Time
}

// NewAttendanceRepository creates a new SQLite attendance repository.
func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, now: time.Now}
}

const entryQuery = `
	SELECT a.id, a.student_id, a.date, a.time, a.status,
	       COALESCE(s.name, ''), COALESCE(s.department, ''), COALESCE(s.batch, '')
	FROM attendance a
	LEFT JOIN students s ON a.student_id = s.student_id
`

// Mark inserts an attendance record. A second record for the same student and
// day violates UNIQUE(student_id, date) and is reported as ok == false.
func (r *AttendanceRepository) Mark(studentID, date, clock string, status model.Status) (bool, error) {
	now := r.now()
	if date == "" {
		date = model.Day(now)
	}
	if clock == "" {
		clock = model.Clock(now)
	}
	if status == "" {
		status = model.StatusPresent
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO attendance (student_id, date, time, status)
		VALUES (?, ?, ?, ?)
	`, studentID, date, clock, string(status))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark attendance: %w", err)
	}
	return true, nil
}

// IsMarked reports whether the student already has a record for date.
func (r *AttendanceRepository) IsMarked(studentID, date string) (bool, error) {
	if date == "" {
		date = model.Day(r.now())
	}

	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*) FROM attendance WHERE student_id = ? AND date = ?
	`, studentID, date).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return count > 0, nil
}

// GetByDate returns every record of a day, earliest first.
func (r *AttendanceRepository) GetByDate(date string) ([]dto.AttendanceEntry, error) {
	if date == "" {
		date = model.Day(r.now())
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(entryQuery+` WHERE a.date = ? ORDER BY a.time`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// GetAll returns records matching filter, newest first.
func (r *AttendanceRepository) GetAll(filter *dto.AttendanceFilter) ([]dto.AttendanceEntry, error) {
	var where []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			where = append(where, "a.student_id = ?")
			args = append(args, filter.StudentID)
		}
		if filter.StartDate != "" {
			where = append(where, "a.date >= ?")
			args = append(args, filter.StartDate)
		}
		if filter.EndDate != "" {
			where = append(where, "a.date <= ?")
			args = append(args, filter.EndDate)
		}
		if filter.Department != "" {
			where = append(where, "s.department = ?")
			args = append(args, filter.Department)
		}
		if filter.Batch != "" {
			where = append(where, "s.batch = ?")
			args = append(args, filter.Batch)
		}
	}

	query := entryQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.date DESC, a.time DESC"
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Recent returns the latest limit records across all days.
func (r *AttendanceRepository) Recent(limit int) ([]dto.AttendanceEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.GetAll(&dto.AttendanceFilter{Limit: limit})
}

// CountByStatus counts records of a day with the given status.
func (r *AttendanceRepository) CountByStatus(date string, status model.Status) (int, error) {
	if date == "" {
		date = model.Day(r.now())
	}

	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`
		SELECT COUNT(DISTINCT student_id) FROM attendance WHERE date = ? AND status = ?
	`, date, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return count, nil
}

// UpdateStatus changes the status of an existing record.
func (r *AttendanceRepository) UpdateStatus(studentID, date string, status model.Status) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE attendance SET status = ? WHERE student_id = ? AND date = ?
	`, string(status), studentID, date)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the record of a student for a day.
func (r *AttendanceRepository) Delete(studentID, date string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM attendance WHERE student_id = ? AND date = ?`, studentID, date)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func collectEntries(rows *sql.Rows) ([]dto.AttendanceEntry, error) {
	var entries []dto.AttendanceEntry
	for rows.Next() {
		var e dto.AttendanceEntry
		var status string
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Date, &e.Time, &status,
			&e.Name, &e.Department, &e.Batch); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		e.Status = model.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
