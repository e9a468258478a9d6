package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"faceattend/internal/model"
)

func studentCommand(open rosterOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Manage enrolled students",
	}
	cmd.AddCommand(
		studentAddCommand(open),
		studentListCommand(open),
		studentRemoveCommand(open),
		studentSearchCommand(open),
	)
	return cmd
}

func studentAddCommand(open rosterOpener) *cobra.Command {
	var st model.Student
	var photo string

	cmd := &cobra.Command{
		Use:   "add <student-id> <name>",
		Short: "Register a student from a photo containing exactly one face",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st.StudentID, st.Name = args[0], args[1]

			roster, err := open(true)
			if err != nil {
				return err
			}
			defer roster.Close()

			if err := roster.Students.RegisterFromFile(&st, photo); err != nil {
				return err
			}
			fmt.Printf("Registered %s (%s)\n", st.Name, st.StudentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&photo, "photo", "", "Photo of the student")
	cmd.Flags().StringVar(&st.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&st.Department, "department", "", "Department")
	cmd.Flags().StringVar(&st.Batch, "batch", "", "Batch or year")
	cmd.MarkFlagRequired("photo")
	return cmd
}

func studentListCommand(open rosterOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			students, err := roster.Students.List()
			if err != nil {
				return err
			}
			printStudents(students)
			return nil
		},
	}
}

func studentSearchCommand(open rosterOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search students by id, name or department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			students, err := roster.Students.Search(args[0])
			if err != nil {
				return err
			}
			printStudents(students)
			return nil
		},
	}
}

func studentRemoveCommand(open rosterOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <student-id>",
		Short: "Remove a student together with their attendance and photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := open(false)
			if err != nil {
				return err
			}
			defer roster.Close()

			if err := roster.Students.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}
}

func printStudents(students []model.Student) {
	if len(students) == 0 {
		fmt.Println("No students found")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEPARTMENT\tBATCH\tFACE")
	for _, s := range students {
		face := "no"
		if s.HasEmbedding() {
			face = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.StudentID, s.Name, s.Department, s.Batch, face)
	}
	w.Flush()
}
