package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"faceattend/internal/app"
	"faceattend/internal/config"
	"faceattend/internal/logger"
)

func serveCommand(cfg *config.Config) *cobra.Command {
	var start, recognize bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance server",
		Long:  "Serve the live view, session control and attendance API. The camera opens on /api/session/start or with --start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(cfg.LogDirectory)
			if err != nil {
				return err
			}
			defer log.Close()

			application, err := app.New(cfg, log)
			if err != nil {
				log.Error("Failed to initialise: %v", err)
				return err
			}
			defer application.Close()

			if start {
				application.AutoStart(recognize)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = application.Run(ctx, func() {
				daemon.SdNotify(false, daemon.SdNotifyReady)
			})
			daemon.SdNotify(false, daemon.SdNotifyStopping)
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	cmd.Flags().IntVar(&cfg.CameraIndex, "camera", cfg.CameraIndex, "Camera device index")
	cmd.Flags().StringVar(&cfg.CameraBackend, "backend", cfg.CameraBackend, "Camera backend (\"opencv\" or \"v4l2\")")
	cmd.Flags().Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "Maximum face distance accepted as a match (0.3-1.0)")
	cmd.Flags().IntVar(&cfg.ProcessEveryNFrames, "stride", cfg.ProcessEveryNFrames, "Run recognition on every Nth frame")
	cmd.Flags().StringVar(&cfg.LogDirectory, "logpath", cfg.LogDirectory, "Directory for log files")
	cmd.Flags().BoolVar(&start, "start", false, "Open the camera on startup")
	cmd.Flags().BoolVar(&recognize, "recognize", false, "Enable recognition on startup (with --start)")

	return cmd
}
