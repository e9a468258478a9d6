package handler

import (
	"net/http"
	"os"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/service/storage"
)

const maxEvidenceLimit = 100

// EvidencePage is the body of the evidence listing.
type EvidencePage struct {
	Files       []storage.EvidenceFile `json:"files"`
	Total       int                    `json:"total"`
	TotalPages  int                    `json:"total_pages"`
	CurrentPage int                    `json:"current_page"`
	Limit       int                    `json:"limit"`
}

// ListEvidenceHandler returns the saved frames of marked students, newest
// first, optionally for one ?student= and ?date=, paginated by ?page=&limit=.
func ListEvidenceHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := max(atoiDefault(q.Get("page"), 1), 1)
		limit := min(max(atoiDefault(q.Get("limit"), 24), 1), maxEvidenceLimit)
		student, date := q.Get("student"), q.Get("date")

		all, err := storage.ListEvidence(cfg.ImageDirectory)
		if err != nil {
			logger.Error("Error listing evidence: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filtered := all[:0]
		for _, f := range all {
			if student != "" && f.StudentID != student {
				continue
			}
			if date != "" && f.Taken.Format("2006-01-02") != date {
				continue
			}
			filtered = append(filtered, f)
		}

		totalPages := (len(filtered) + limit - 1) / limit
		from, to := len(filtered), len(filtered)
		if page <= totalPages {
			from = (page - 1) * limit
			to = min(from+limit, len(filtered))
		}
		writeJSON(w, http.StatusOK, EvidencePage{
			Files:       filtered[from:to],
			Total:       len(filtered),
			TotalPages:  totalPages,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewEvidenceHandler serves the frame named by ?name=.
func ViewEvidenceHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := storage.EvidencePath(cfg.ImageDirectory, r.URL.Query().Get("name"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, path)
	}
}

// DeleteEvidenceHandler removes the frame named by ?name=.
func DeleteEvidenceHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		path, err := storage.EvidencePath(cfg.ImageDirectory, name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			logger.Error("Failed to delete evidence %s: %v", name, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		logger.Info("Deleted evidence frame: %s", name)
		w.WriteHeader(http.StatusNoContent)
	}
}
