// Package ai wraps the dlib face models used to detect and encode faces.
package ai

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"

	face "github.com/Kagami/go-face"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/service/recognition"
)

// EmbeddingDim is the length of a dlib face descriptor.
const EmbeddingDim = 128

const (
	ModelHOG = "hog"
	ModelCNN = "cnn"
)

var (
	// ErrNoFace is returned when an image that must contain a face has none.
	ErrNoFace = errors.New("no face detected")
	// ErrMultipleFaces is returned when an image that must contain one face has several.
	ErrMultipleFaces = errors.New("multiple faces detected")
	// ErrNotInitialized is returned when the models could not be loaded.
	ErrNotInitialized = errors.New("face models not initialized")
)

// Files that must be present in the models directory. The CNN detector is
// only required when the cnn model is selected.
var requiredModels = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
}

const cnnModel = "mmod_human_face_detector.dat"

// EncoderService detects faces and computes 128-d embeddings with dlib.
// dlib's recognizer is not safe for concurrent use, calls are serialised.
type EncoderService struct {
	rec       *face.Recognizer
	modelsDir string
	model     string
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewEncoderService loads the dlib models from cfg.ModelsDir.
func NewEncoderService(cfg *config.Config, logger *logger.Logger) (*EncoderService, error) {
	s := &EncoderService{
		modelsDir: cfg.ModelsDir,
		model:     cfg.DetectionModel,
		logger:    logger,
	}
	if s.model != ModelCNN {
		s.model = ModelHOG
	}

	if err := s.initializeModels(); err != nil {
		return nil, err
	}
	return s, nil
}

// initializeModels checks the model files and loads the recognizer.
func (s *EncoderService) initializeModels() error {
	files := requiredModels
	if s.model == ModelCNN {
		files = append(append([]string{}, files...), cnnModel)
	}
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(s.modelsDir, name)); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", filepath.Join(s.modelsDir, name))
		}
	}

	rec, err := face.NewRecognizer(s.modelsDir)
	if err != nil {
		return fmt.Errorf("failed to load face models: %w", err)
	}

	s.rec = rec
	s.logger.Info("Face models loaded from %s (%s detector)", s.modelsDir, s.model)
	return nil
}

// Close releases the dlib recognizer.
func (s *EncoderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		s.rec.Close()
		s.rec = nil
	}
}

// Recognize finds every face in img and returns its box and embedding.
func (s *EncoderService) Recognize(img image.Image) ([]recognition.Face, error) {
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	faces, err := s.recognizeBytes(data)
	if err != nil {
		return nil, err
	}

	offset := img.Bounds().Min
	result := make([]recognition.Face, 0, len(faces))
	for _, f := range faces {
		result = append(result, recognition.Face{
			Box:       recognition.BoxFromRect(f.Rectangle.Add(offset)),
			Embedding: descriptorToEmbedding(f.Descriptor),
		})
	}
	return result, nil
}

// Detect returns the boxes of every face in img.
func (s *EncoderService) Detect(img image.Image) ([]recognition.Box, error) {
	faces, err := s.Recognize(img)
	if err != nil {
		return nil, err
	}
	boxes := make([]recognition.Box, len(faces))
	for i, f := range faces {
		boxes[i] = f.Box
	}
	return boxes, nil
}

// Encode computes the embedding of the face inside box, or of the only face in
// img when box is nil. ok is false when no face is found there.
func (s *EncoderService) Encode(img image.Image, box *recognition.Box) (emb recognition.Embedding, ok bool, err error) {
	region := img
	if box != nil {
		region = crop(img, box.Rect())
	}

	faces, err := s.Recognize(region)
	if err != nil {
		return nil, false, err
	}
	if len(faces) == 0 {
		return nil, false, nil
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if area(f.Box) > area(best.Box) {
			best = f
		}
	}
	return best.Embedding, true, nil
}

// EncodeSingle returns the embedding of the single face in a registration photo.
func (s *EncoderService) EncodeSingle(img image.Image) (recognition.Embedding, error) {
	faces, err := s.Recognize(img)
	if err != nil {
		return nil, err
	}
	switch len(faces) {
	case 0:
		return nil, ErrNoFace
	case 1:
		return faces[0].Embedding, nil
	default:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleFaces, len(faces))
	}
}

func (s *EncoderService) recognizeBytes(data []byte) ([]face.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil, ErrNotInitialized
	}

	var faces []face.Face
	var err error
	if s.model == ModelCNN {
		faces, err = s.rec.RecognizeCNN(data)
	} else {
		faces, err = s.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("face recognition failed: %w", err)
	}
	return faces, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func descriptorToEmbedding(d face.Descriptor) recognition.Embedding {
	emb := make(recognition.Embedding, len(d))
	for i, v := range d {
		emb[i] = float64(v)
	}
	return emb
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if si, ok := img.(subImager); ok {
		return si.SubImage(r.Intersect(img.Bounds()))
	}
	return img
}

func area(b recognition.Box) int {
	return (b.Right - b.Left) * (b.Bottom - b.Top)
}
