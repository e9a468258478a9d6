package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"faceattend/internal/app"
	"faceattend/internal/config"
	"faceattend/internal/logger"
)

func main() {
	cfg := config.Load()

	if err := rootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "faceattend",
		Short:         "Face recognition attendance",
		Long:          "Marks student attendance from a live camera feed by matching faces against the enrolled roster.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	root.PersistentFlags().StringVar(&cfg.ModelsDir, "models", cfg.ModelsDir, "Directory holding the dlib model files")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr in one-shot commands")

	// One-shot commands log nowhere unless asked to.
	cliLogger := func() *logger.Logger {
		if verbose {
			return logger.NewWriter(os.Stderr)
		}
		return logger.NewWriter(io.Discard)
	}
	openRoster := func(withEncoder bool) (*app.Roster, error) {
		return app.OpenRoster(cfg, cliLogger(), nil, withEncoder)
	}

	root.AddCommand(
		serveCommand(cfg),
		studentCommand(openRoster),
		attendanceCommand(cfg, openRoster),
	)
	return root
}

type rosterOpener func(withEncoder bool) (*app.Roster, error)
