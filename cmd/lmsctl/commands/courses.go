package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lmsplatform/lms/backend/go-services/internal/courses"
	"github.com/spf13/cobra"
)

// NewCourseCmd creates the course command
func NewCourseCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Manage the course catalog",
	}
	cmd.AddCommand(newCourseListCmd(open))
	cmd.AddCommand(newCourseImportCmd(open))
	return cmd
}

func newCourseListCmd(open Opener) *cobra.Command {
	var category, level string
	var featured bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), open, func(s *Stores) error {
				list, err := s.Catalog.List(cmd.Context(), courses.Filter{Category: category, Level: courses.Level(level), Featured: featured})
				if err != nil {
					return fmt.Errorf("failed to list courses: %w", err)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No courses")
					return nil
				}
				for _, c := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d lessons\t%d students\n", c.ID, c.Title, c.Level, len(c.Lessons), c.Students)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only courses in this category")
	cmd.Flags().StringVar(&level, "level", "", "only courses of this level (Beginner, Intermediate, Advanced)")
	cmd.Flags().BoolVar(&featured, "featured", false, "only featured courses")
	return cmd
}

func newCourseImportCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Create courses from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var list []courses.Course
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			return withStores(cmd.Context(), open, func(s *Stores) error {
				for i := range list {
					c := list[i]
					c.ID = ""
					id, err := s.Catalog.Create(cmd.Context(), &c)
					if err != nil {
						return fmt.Errorf("course %d (%q): %w", i, c.Title, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", id, c.Title)
				}
				return nil
			})
		},
	}
}
