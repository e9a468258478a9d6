// Package attendance decides when a recognised face becomes an attendance
// record and provides the attendance management operations.
package attendance

import (
	"context"
	"time"

	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/model"
)

const (
	DefaultCooldown       = 5 * time.Second
	DefaultRecentCapacity = 10
)

// Outcome is the result of offering a recognised student to the Gate.
type Outcome int

const (
	Marked Outcome = iota
	SuppressedCooldown
	SuppressedAlreadyMarkedToday
	StudentNotFound
	WriteFailed
)

func (o Outcome) String() string {
	switch o {
	case Marked:
		return "marked"
	case SuppressedCooldown:
		return "suppressed_cooldown"
	case SuppressedAlreadyMarkedToday:
		return "suppressed_already_marked"
	case StudentNotFound:
		return "student_not_found"
	case WriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// StudentChecker reports whether a student is enrolled.
type StudentChecker interface {
	Exists(studentID string) (bool, error)
}

// AttendanceRecorder checks and writes attendance records.
type AttendanceRecorder interface {
	IsMarked(studentID, date string) (bool, error)
	Mark(studentID, date, clock string, status model.Status) (bool, error)
}

type recentMark struct {
	studentID string
	at        time.Time
}

// Gate turns recognitions into at most one attendance write per student per
// day, and at most one write attempt per student per cooldown window.
// It is owned by the capture goroutine and is not safe for concurrent use.
type Gate struct {
	students StudentChecker
	records  AttendanceRecorder
	cooldown time.Duration
	capacity int
	recent   []recentMark
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewGate creates a Gate. Non-positive cooldown or capacity use the defaults.
func NewGate(students StudentChecker, records AttendanceRecorder, cooldown time.Duration, capacity int, logger *logger.Logger, m *metrics.Metrics) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Gate{
		students: students,
		records:  records,
		cooldown: cooldown,
		capacity: capacity,
		recent:   make([]recentMark, 0, capacity),
		logger:   logger,
		metrics:  m,
	}
}

// Offer records attendance for studentID at now unless the student was marked
// within the cooldown, is already marked for now's day, or is not enrolled.
func (g *Gate) Offer(ctx context.Context, studentID, name string, now time.Time) Outcome {
	outcome := g.offer(ctx, studentID, name, now)
	g.metrics.Gate(outcome.String())
	return outcome
}

func (g *Gate) offer(ctx context.Context, studentID, name string, now time.Time) Outcome {
	if g.inCooldown(studentID, now) {
		return SuppressedCooldown
	}
	if err := ctx.Err(); err != nil {
		return WriteFailed
	}

	exists, err := g.students.Exists(studentID)
	if err != nil {
		g.logger.Error("Failed to look up student %s: %v", studentID, err)
		return WriteFailed
	}
	if !exists {
		g.logger.Warning("Recognised %s (%s) is not enrolled", name, studentID)
		return StudentNotFound
	}

	date := model.Day(now)
	marked, err := g.records.IsMarked(studentID, date)
	if err != nil {
		g.logger.Error("Failed to check attendance for %s: %v", studentID, err)
		return WriteFailed
	}
	if marked {
		return SuppressedAlreadyMarkedToday
	}

	ok, err := g.records.Mark(studentID, date, model.Clock(now), model.StatusPresent)
	if err != nil {
		g.logger.Error("Failed to mark attendance for %s: %v", studentID, err)
		return WriteFailed
	}
	if !ok {
		return SuppressedAlreadyMarkedToday
	}

	g.remember(studentID, now)
	g.logger.Info("Attendance marked for %s (%s) at %s", name, studentID, model.Clock(now))
	return Marked
}

func (g *Gate) inCooldown(studentID string, now time.Time) bool {
	for _, r := range g.recent {
		if r.studentID == studentID && now.Sub(r.at) < g.cooldown {
			return true
		}
	}
	return false
}

// remember appends to the recency buffer, evicting the oldest entry when full.
func (g *Gate) remember(studentID string, now time.Time) {
	if len(g.recent) == g.capacity {
		copy(g.recent, g.recent[1:])
		g.recent = g.recent[:len(g.recent)-1]
	}
	g.recent = append(g.recent, recentMark{studentID: studentID, at: now})
}

// Reset clears the recency buffer.
func (g *Gate) Reset() {
	g.recent = g.recent[:0]
}
