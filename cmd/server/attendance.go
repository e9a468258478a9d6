package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"faceattend/internal/config"
	"faceattend/internal/dto"
	"faceattend/internal/model"
)

func attendanceCommand(cfg *config.Config, open rosterOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Inspect and correct attendance records",
	}
	cmd.AddCommand(
		attendanceTodayCommand(open),
		attendanceMarkCommand(open),
		attendanceStatusCommand(open),
		attendanceStatsCommand(open),
		attendanceDefaultersCommand(cfg, open),
	)
	return cmd
}

func attendanceTodayCommand(open rosterOpener) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "today",
		Short: "List today's attendance (or --date)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			var entries []dto.AttendanceEntry
			if date == "" {
				entries, err = roster.Attendance.Today()
			} else {
				entries, err = roster.Attendance.ByDate(date)
			}
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to list (YYYY-MM-DD)")
	return cmd
}

func attendanceMarkCommand(open rosterOpener) *cobra.Command {
	var date, clock, status string

	cmd := &cobra.Command{
		Use:   "mark <student-id>",
		Short: "Record attendance manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(status)
			if err != nil {
				return err
			}
			now := time.Now()
			if date == "" {
				date = model.Day(now)
			}
			if clock == "" {
				clock = model.Clock(now)
			}

			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			if err := roster.Attendance.MarkManual(args[0], date, clock, st); err != nil {
				return err
			}
			fmt.Printf("Marked %s %s on %s at %s\n", args[0], st, date, clock)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&clock, "time", "", "Time (HH:MM:SS, default now)")
	cmd.Flags().StringVar(&status, "status", string(model.StatusPresent), "Present, Absent or Late")
	return cmd
}

func attendanceStatusCommand(open rosterOpener) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "status <student-id> <date> [status]",
		Short: "Change or delete (--delete) one day's record",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			if remove {
				if err := roster.Attendance.Delete(args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("Deleted record of %s on %s\n", args[0], args[1])
				return nil
			}

			if len(args) != 3 {
				return fmt.Errorf("status is required unless --delete is given")
			}
			st, err := model.ParseStatus(args[2])
			if err != nil {
				return err
			}
			if err := roster.Attendance.UpdateStatus(args[0], args[1], st); err != nil {
				return err
			}
			fmt.Printf("%s on %s is now %s\n", args[0], args[1], st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the record instead")
	return cmd
}

func attendanceStatsCommand(open rosterOpener) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the attendance summary of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			stats, err := roster.Attendance.Statistics(date)
			if err != nil {
				return err
			}
			fmt.Printf("Date:       %s\n", stats.Date)
			fmt.Printf("Students:   %d\n", stats.TotalStudents)
			fmt.Printf("Present:    %d\n", stats.Present)
			fmt.Printf("Absent:     %d\n", stats.Absent)
			fmt.Printf("Attendance: %.2f%%\n", stats.Percentage)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day (YYYY-MM-DD, default today)")
	return cmd
}

func attendanceDefaultersCommand(cfg *config.Config, open rosterOpener) *cobra.Command {
	var start, end string
	threshold := cfg.DefaulterThreshold

	cmd := &cobra.Command{
		Use:   "defaulters",
		Short: "List students below an attendance percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			defaulters, err := roster.Attendance.Defaulters(threshold, start, end)
			if err != nil {
				return err
			}
			if len(defaulters) == 0 {
				fmt.Printf("No students below %.0f%%\n", threshold)
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tBATCH\tATTENDANCE")
			for _, d := range defaulters {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f%%\n", d.StudentID, d.Name, d.Department, d.Batch, d.Percentage)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", threshold, "Attendance percentage threshold")
	cmd.Flags().StringVar(&start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day (YYYY-MM-DD)")
	return cmd
}

func printEntries(entries []dto.AttendanceEntry) {
	if len(entries) == 0 {
		fmt.Println("No attendance records")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tTIME\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.StudentID, e.Name, e.Date, e.Time, e.Status)
	}
	w.Flush()
}
