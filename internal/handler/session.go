package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"faceattend/internal/logger"
	"faceattend/internal/service/camera"
	"faceattend/internal/service/capture"
	"faceattend/internal/service/recognition"
)

// Session is the capture session controlled over HTTP.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	SetRecognition(enabled bool)
	Recognizing() bool
	State() capture.State
	Running() bool
	Err() error
}

// Clearer drops the frame shown to viewers.
type Clearer interface {
	Clear()
}

// SessionStatus is the body returned by the session endpoints.
type SessionStatus struct {
	State       string  `json:"state"`
	Running     bool    `json:"running"`
	Recognizing bool    `json:"recognizing"`
	Tolerance   float64 `json:"tolerance"`
	GallerySize int     `json:"gallery_size"`
	Error       string  `json:"error,omitempty"`
}

func sessionStatus(s Session, matcher *recognition.Matcher, gallery *recognition.Gallery) SessionStatus {
	st := SessionStatus{
		State:       s.State().String(),
		Running:     s.Running(),
		Recognizing: s.Recognizing(),
		Tolerance:   matcher.Tolerance(),
		GallerySize: gallery.Len(),
	}
	if err := s.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// SessionStatusHandler reports the capture state.
func SessionStatusHandler(s Session, matcher *recognition.Matcher, gallery *recognition.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionStatus(s, matcher, gallery))
	}
}

// SessionStartHandler opens the camera and starts capture. ctx bounds the
// session's lifetime, not the request's.
func SessionStartHandler(ctx context.Context, s Session, matcher *recognition.Matcher, gallery *recognition.Gallery, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.Start(ctx)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrAlreadyRunning), errors.Is(err, capture.ErrStillStopping):
			writeError(w, http.StatusConflict, err)
			return
		case errors.Is(err, camera.ErrCameraUnavailable):
			writeError(w, http.StatusServiceUnavailable, err)
			return
		default:
			logger.Error("Failed to start capture: %v", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionStatus(s, matcher, gallery))
	}
}

// SessionStopHandler stops capture and clears the viewer frame.
func SessionStopHandler(s Session, display Clearer, matcher *recognition.Matcher, gallery *recognition.Gallery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Stop()
		display.Clear()
		writeJSON(w, http.StatusOK, sessionStatus(s, matcher, gallery))
	}
}

// RecognitionHandler turns recognition on or off (?enabled=true|false).
func RecognitionHandler(s Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("enabled must be true or false"))
			return
		}
		s.SetRecognition(enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"recognizing": enabled})
	}
}

// ToleranceHandler reports the match tolerance on GET and changes it on POST
// (?value=). Values outside the accepted range leave it unchanged.
func ToleranceHandler(matcher *recognition.Matcher, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			v, err := strconv.ParseFloat(r.URL.Query().Get("value"), 64)
			if err != nil || !matcher.SetTolerance(v) {
				writeError(w, http.StatusBadRequest, errors.New("tolerance must be between 0.3 and 1.0"))
				return
			}
			logger.Info("Tolerance set to %.2f", v)
		}
		writeJSON(w, http.StatusOK, map[string]float64{"tolerance": matcher.Tolerance()})
	}
}

// GalleryReloader rebuilds the gallery from storage.
type GalleryReloader interface {
	ReloadGallery() error
}

// GalleryReloadHandler reloads the gallery so new registrations are recognised.
func GalleryReloadHandler(students GalleryReloader, gallery *recognition.Gallery, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := students.ReloadGallery(); err != nil {
			logger.Error("Gallery reload failed: %v", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		logger.Info("Gallery reloaded with %d students", gallery.Len())
		writeJSON(w, http.StatusOK, map[string]int{"gallery_size": gallery.Len()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
