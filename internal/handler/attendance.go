package handler

import (
	"net/http"
	"strconv"

	"faceattend/internal/dto"
	"faceattend/internal/logger"
	"faceattend/internal/service/attendance"
)

// TodayAttendanceHandler lists today's attendance records.
func TodayAttendanceHandler(manager *attendance.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := manager.Today()
		if err != nil {
			logger.Error("Error querying today's attendance: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []dto.AttendanceEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// AttendanceStatsHandler returns the statistics for ?date= (default today).
func AttendanceStatsHandler(manager *attendance.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.Statistics(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// AttendanceListHandler lists records filtered by student, date range,
// department and batch query parameters.
func AttendanceListHandler(manager *attendance.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &dto.AttendanceFilter{
			StudentID:  q.Get("student"),
			StartDate:  q.Get("start"),
			EndDate:    q.Get("end"),
			Department: q.Get("department"),
			Batch:      q.Get("batch"),
			Limit:      atoiDefault(q.Get("limit"), 0),
		}

		entries, err := manager.List(filter)
		if err != nil {
			logger.Error("Error querying attendance: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []dto.AttendanceEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return def
}
