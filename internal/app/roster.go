package app

import (
	"fmt"
	"os"
	"path/filepath"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/repository/sqlite"
	"faceattend/internal/service/ai"
	"faceattend/internal/service/attendance"
	"faceattend/internal/service/recognition"
	"faceattend/internal/service/student"
)

// Roster is the storage side of the application: the database, the roster
// and attendance services, and optionally the face encoder. CLI commands
// that only read or edit records open it without the encoder.
type Roster struct {
	DB          *sqlite.DB
	StudentRepo *sqlite.StudentRepository
	RecordRepo  *sqlite.AttendanceRepository
	Encoder     *ai.EncoderService
	Gallery     *recognition.Gallery
	Students    *student.Service
	Attendance  *attendance.Manager
}

// OpenRoster opens the database and builds the services on top of it. With
// withEncoder the dlib models are loaded and registration becomes possible.
func OpenRoster(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics, withEncoder bool) (*Roster, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	r := &Roster{
		DB:          db,
		StudentRepo: sqlite.NewStudentRepository(db),
		RecordRepo:  sqlite.NewAttendanceRepository(db),
		Gallery:     recognition.NewGallery(ai.EmbeddingDim, logger),
	}

	var encoder student.FaceEncoder
	if withEncoder {
		r.Encoder, err = ai.NewEncoderService(cfg, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		encoder = r.Encoder
	}

	r.Students = student.NewService(r.StudentRepo, encoder, r.Gallery, cfg.StudentImageDir, logger, m)
	r.Attendance = attendance.NewManager(r.StudentRepo, r.RecordRepo, logger)
	return r, nil
}

// Close releases the encoder and the database.
func (r *Roster) Close() error {
	if r.Encoder != nil {
		r.Encoder.Close()
	}
	return r.DB.Close()
}
