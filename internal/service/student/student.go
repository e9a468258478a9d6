// Package student manages the enrolled roster: registration from a photo,
// edits and removal, and keeping the recognition gallery in sync.
package student

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/model"
	"faceattend/internal/repository"
	"faceattend/internal/service/recognition"
	"faceattend/internal/validate"
)

// ErrNotFound is returned for operations on a student that is not enrolled.
var ErrNotFound = errors.New("student not found")

// FaceEncoder computes the embedding of the single face in a photo.
type FaceEncoder interface {
	EncodeSingle(img image.Image) (recognition.Embedding, error)
}

// Service implements roster management.
type Service struct {
	repo      repository.StudentRepository
	encoder   FaceEncoder
	gallery   *recognition.Gallery
	validator *validate.Validator
	imageDir  string
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewService creates a roster service. encoder may be nil for read-only use;
// registration then fails.
func NewService(repo repository.StudentRepository, encoder FaceEncoder, gallery *recognition.Gallery, imageDir string, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		encoder:   encoder,
		gallery:   gallery,
		validator: validate.New(),
		imageDir:  imageDir,
		logger:    logger,
		metrics:   m,
	}
}

// RegisterFromFile decodes the photo at path and registers st with it.
func (s *Service) RegisterFromFile(st *model.Student, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode photo %s: %w", path, err)
	}
	return s.Register(st, img)
}

// Register validates st, computes its embedding from photo, stores the photo
// and the record, and reloads the gallery. The photo must show exactly one face.
func (s *Service) Register(st *model.Student, photo image.Image) error {
	if err := s.validator.Struct(st); err != nil {
		return err
	}
	if s.encoder == nil {
		return errors.New("face encoder not available")
	}

	exists, err := s.repo.Exists(st.StudentID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", repository.ErrStudentExists, st.StudentID)
	}

	emb, err := s.encoder.EncodeSingle(photo)
	if err != nil {
		return fmt.Errorf("registration photo for %s: %w", st.StudentID, err)
	}
	st.Embedding = emb

	path, err := s.savePhoto(st.StudentID, photo)
	if err != nil {
		return err
	}
	st.PhotoPath = path

	id, err := s.repo.Insert(st)
	if err != nil {
		os.Remove(path)
		return err
	}
	st.ID = id

	s.logger.Info("Registered student %s (%s)", st.Name, st.StudentID)
	return s.ReloadGallery()
}

// savePhoto writes photo as <imageDir>/<studentID>.jpg.
func (s *Service) savePhoto(studentID string, photo image.Image) (string, error) {
	if err := os.MkdirAll(s.imageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	path := filepath.Join(s.imageDir, studentID+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, photo, &jpeg.Options{Quality: 95}); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save photo: %w", err)
	}
	return path, nil
}

// Get returns a student by identifier.
func (s *Service) Get(studentID string) (*model.Student, error) {
	st, err := s.repo.GetByStudentID(studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studentID)
	}
	return st, nil
}

// List returns every student.
func (s *Service) List() ([]model.Student, error) {
	return s.repo.GetAll()
}

// Search finds students by identifier, name or department.
func (s *Service) Search(term string) ([]model.Student, error) {
	return s.repo.Search(term)
}

// Departments lists the known departments.
func (s *Service) Departments() ([]string, error) {
	return s.repo.Departments()
}

// Batches lists the known batches.
func (s *Service) Batches() ([]string, error) {
	return s.repo.Batches()
}

// Update applies upd after validating the resulting record.
func (s *Service) Update(studentID string, upd model.StudentUpdate) error {
	st, err := s.Get(studentID)
	if err != nil {
		return err
	}

	if upd.Name != nil {
		st.Name = *upd.Name
	}
	if upd.Email != nil {
		st.Email = *upd.Email
	}
	if upd.Department != nil {
		st.Department = *upd.Department
	}
	if upd.Batch != nil {
		st.Batch = *upd.Batch
	}
	if err := s.validator.Struct(st); err != nil {
		return err
	}

	if err := s.repo.Update(studentID, upd); err != nil {
		return err
	}
	if upd.Name != nil {
		return s.ReloadGallery()
	}
	return nil
}

// Delete removes a student, their attendance and their photo.
func (s *Service) Delete(studentID string) error {
	st, err := s.Get(studentID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(studentID); err != nil {
		return err
	}
	if st.PhotoPath != "" {
		if err := os.Remove(st.PhotoPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warning("Failed to remove photo %s: %v", st.PhotoPath, err)
		}
	}

	s.logger.Info("Deleted student %s", studentID)
	return s.ReloadGallery()
}

// ReloadGallery rebuilds the recognition gallery from storage.
func (s *Service) ReloadGallery() error {
	if s.gallery == nil {
		return nil
	}
	students, err := s.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load students for gallery: %w", err)
	}
	if err := s.gallery.Load(students); err != nil {
		return err
	}
	s.metrics.SetGallerySize(s.gallery.Len())
	return nil
}
