package cmd

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/dashboard-session/session"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		cs.manager.Logout(cmd.Context())
		printState(cmd, cs.manager.State())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is stored and when its access token expires",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		state := cs.manager.State()
		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", state.Status)
		if !state.Status.IsAuthenticated() {
			return nil
		}
		token, err := cs.manager.AccessToken(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "access token expires: %s\n", formatExpiry(session.AccessTokenExpiry(token)))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity of the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		// Initialize starts enrichment in the background.
		cs.manager.Wait()
		state := cs.manager.State()
		if !state.Status.IsAuthenticated() {
			return errors.New("not logged in")
		}
		printState(cmd, state)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		token, err := cs.manager.Refresh(cmd.Context())
		if err != nil {
			return errors.New(session.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "refreshed, access token expires: %s\n", formatExpiry(session.AccessTokenExpiry(token)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd, statusCmd, whoamiCmd, refreshCmd)
}
