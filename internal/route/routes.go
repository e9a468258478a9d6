package route

import (
	"context"
	"net/http"

	"faceattend/internal/config"
	"faceattend/internal/handler"
	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/middleware"
	"faceattend/internal/service/attendance"
	"faceattend/internal/service/display"
	"faceattend/internal/service/recognition"
)

// Services groups what the HTTP surface needs.
type Services struct {
	Session    handler.Session
	Mailbox    *display.Mailbox
	Hub        *display.HubService
	Matcher    *recognition.Matcher
	Gallery    *recognition.Gallery
	Students   handler.GalleryReloader
	Attendance *attendance.Manager
	Metrics    *metrics.Metrics
}

// SetupRoutes registers the API, log and metrics endpoints and wraps the mux
// with the loopback middleware. ctx is the server lifetime.
func SetupRoutes(ctx context.Context, s Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Live view
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(ctx, s.Hub, logger))

	// Capture session
	mux.HandleFunc("GET /api/session", handler.SessionStatusHandler(s.Session, s.Matcher, s.Gallery))
	mux.HandleFunc("POST /api/session/start", handler.SessionStartHandler(ctx, s.Session, s.Matcher, s.Gallery, logger))
	mux.HandleFunc("POST /api/session/stop", handler.SessionStopHandler(s.Session, s.Mailbox, s.Matcher, s.Gallery))
	mux.HandleFunc("POST /api/recognition", handler.RecognitionHandler(s.Session))
	mux.HandleFunc("GET /api/tolerance", handler.ToleranceHandler(s.Matcher, logger))
	mux.HandleFunc("POST /api/tolerance", handler.ToleranceHandler(s.Matcher, logger))
	mux.HandleFunc("POST /api/gallery/reload", handler.GalleryReloadHandler(s.Students, s.Gallery, logger))

	// Attendance
	mux.HandleFunc("GET /api/attendance", handler.AttendanceListHandler(s.Attendance, logger))
	mux.HandleFunc("GET /api/attendance/today", handler.TodayAttendanceHandler(s.Attendance, logger))
	mux.HandleFunc("GET /api/attendance/stats", handler.AttendanceStatsHandler(s.Attendance, logger))

	// Evidence frames of marked students
	mux.HandleFunc("GET /api/evidence", handler.ListEvidenceHandler(cfg, logger))
	mux.HandleFunc("GET /api/evidence/view", handler.ViewEvidenceHandler(cfg))
	mux.HandleFunc("DELETE /api/evidence", handler.DeleteEvidenceHandler(cfg, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	return middleware.LocalOnly(cfg.AllowRemote, mux)
}
