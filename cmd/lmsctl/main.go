package main

import (
	"fmt"
	"os"

	"github.com/lmsplatform/lms/backend/go-services/cmd/lmsctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "lmsctl",
		Short: "Operator tool for the LMS backend",
		Long:  "CLI tool for inspecting profiles, managing roles, importing courses and reading analytics",
	}

	open := commands.OpenFromConfig
	rootCmd.AddCommand(commands.NewUserCmd(open))
	rootCmd.AddCommand(commands.NewCourseCmd(open))
	rootCmd.AddCommand(commands.NewAnalyticsCmd(open))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
