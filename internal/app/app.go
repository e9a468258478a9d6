// Package app wires the attendance server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/route"
	"faceattend/internal/service/attendance"
	"faceattend/internal/service/camera"
	"faceattend/internal/service/capture"
	"faceattend/internal/service/display"
	"faceattend/internal/service/recognition"
	"faceattend/internal/service/storage"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	roster      *Roster
	matcher     *recognition.Matcher
	pipeline    *recognition.Pipeline
	gate        *attendance.Gate
	loop        *capture.Loop
	mailbox     *display.Mailbox
	hubService  *display.HubService
	broadcaster *display.Broadcaster
	buffer      *storage.BufferService

	autoStart     bool
	autoRecognize bool
}

// New builds every component. It fails when the database, the face models or
// the camera backend cannot be set up; the camera itself is opened on Start.
func New(cfg *config.Config, logger *logger.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	roster, err := OpenRoster(cfg, logger, m, true)
	if err != nil {
		return nil, err
	}
	if err := roster.Students.ReloadGallery(); err != nil {
		roster.Close()
		return nil, err
	}

	source, err := camera.New(cfg.CameraBackend)
	if err != nil {
		roster.Close()
		return nil, err
	}

	matcher := recognition.NewMatcher(cfg.Tolerance)
	if matcher.Tolerance() != cfg.Tolerance {
		logger.Warning("Tolerance %.2f out of range, using %.2f", cfg.Tolerance, matcher.Tolerance())
	}
	pipeline := recognition.NewPipeline(roster.Encoder, roster.Gallery, matcher, cfg.ProcessEveryNFrames, logger, m)
	gate := attendance.NewGate(roster.StudentRepo, roster.RecordRepo, cfg.Cooldown(), cfg.RecentCapacity, logger, m)

	mailbox := display.NewMailbox()
	hub := display.NewHubService(logger, m)
	buffer := storage.NewBufferService(cfg, logger, m)

	loop := capture.NewLoop(source, pipeline, gate, mailbox, buffer, capture.Options{
		CameraIndex: cfg.CameraIndex,
		Width:       cfg.FrameWidth,
		Height:      cfg.FrameHeight,
		StopTimeout: cfg.StopTimeout,
	}, logger, m)

	return &App{
		config:      cfg,
		logger:      logger,
		metrics:     m,
		roster:      roster,
		matcher:     matcher,
		pipeline:    pipeline,
		gate:        gate,
		loop:        loop,
		mailbox:     mailbox,
		hubService:  hub,
		broadcaster: display.NewBroadcaster(mailbox, hub, cfg.DisplayInterval, logger),
		buffer:      buffer,
	}, nil
}

// AutoStart makes Run open the camera as soon as the server is listening.
func (a *App) AutoStart(recognize bool) {
	a.autoStart = true
	a.autoRecognize = recognize
}

// Run serves HTTP until ctx is done, then stops capture and shuts down.
// ready is called once the listener is bound.
func (a *App) Run(ctx context.Context, ready func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	var wg sync.WaitGroup
	for _, run := range []func(context.Context){a.hubService.Run, a.broadcaster.Run, a.buffer.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	defer wg.Wait()
	defer cancel()

	// Setup routes
	router := route.SetupRoutes(ctx, route.Services{
		Session:    a.loop,
		Mailbox:    a.mailbox,
		Hub:        a.hubService,
		Matcher:    a.matcher,
		Gallery:    a.roster.Gallery,
		Students:   a.roster.Students,
		Attendance: a.roster.Attendance,
		Metrics:    a.metrics,
	}, a.config, a.logger)

	listener, err := net.Listen("tcp", a.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.ListenAddr, err)
	}
	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	a.logger.Info("Attendance server listening on http://%s", listener.Addr())
	a.logger.Info("Database: %s, gallery: %d students, tolerance: %.2f",
		a.config.DBPath, a.roster.Gallery.Len(), a.matcher.Tolerance())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	if ready != nil {
		ready()
	}

	if a.autoStart {
		if err := a.loop.Start(ctx); err != nil {
			a.logger.Error("Auto start failed: %v", err)
		} else {
			a.loop.SetRecognition(a.autoRecognize)
		}
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-serveErr:
	}

	a.loop.Stop()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Warning("HTTP shutdown: %v", shutdownErr)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("Server stopped")
	return nil
}

// Close releases the encoder and the database.
func (a *App) Close() error {
	return a.roster.Close()
}
