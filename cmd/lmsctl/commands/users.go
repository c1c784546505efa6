package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lmsplatform/lms/backend/go-services/internal/models"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/spf13/cobra"
)

// NewUserCmd creates the user command
func NewUserCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect profiles and manage roles",
	}
	cmd.AddCommand(newUserShowCmd(open))
	cmd.AddCommand(newRoleCmd(open, "promote", models.RoleAdmin))
	cmd.AddCommand(newRoleCmd(open, "demote", models.RoleUser))
	cmd.AddCommand(newSignoutCmd(open))
	return cmd
}

func newUserShowCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <subject-id>",
		Short: "Print a stored profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), open, func(s *Stores) error {
				doc, err := s.Profiles.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load profile: %w", err)
				}
				if doc == nil {
					return fmt.Errorf("no profile stored for %s", args[0])
				}
				p, err := profiles.Merge(models.NewUserProfile(args[0], "", "", time.Time{}), doc)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			})
		},
	}
}

func newRoleCmd(open Opener, use string, role models.Role) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <subject-id>",
		Short: fmt.Sprintf("Set a user's role to %s", role),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), open, func(s *Stores) error {
				if err := s.Profiles.SetRole(cmd.Context(), args[0], role); err != nil {
					return fmt.Errorf("failed to set role: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
				return nil
			})
		},
	}
}

func newSignoutCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "signout <subject-id>",
		Short: "End every server session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), open, func(s *Stores) error {
				n, err := s.Sessions.RevokeSubject(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to revoke sessions: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s) for %s\n", n, args[0])
				return nil
			})
		},
	}
}
