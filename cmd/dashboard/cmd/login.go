package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/dashboard-session/session"
	"github.com/spf13/cobra"
)

var (
	loginUser     string
	loginPassword string
	loginProvider string
	loginCode     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with an email and password, or a social provider code",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		if loginProvider != "" {
			if loginCode == "" {
				return errors.New("--code is required with --provider")
			}
			err = cs.manager.LoginWithProvider(cmd.Context(), loginProvider, loginCode)
		} else {
			if loginUser == "" {
				return errors.New("--user is required")
			}
			if loginPassword == "" {
				if loginPassword, err = readPassword(cmd); err != nil {
					return err
				}
			}
			err = cs.manager.Login(cmd.Context(), loginUser, loginPassword)
		}
		if err != nil {
			return errors.New(session.UserMessage(err))
		}

		cs.manager.Wait()
		printState(cmd, cs.manager.State())
		return nil
	},
}

// readPassword reads a single line from stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "", "Email address")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password, read from stdin when empty")
	loginCmd.Flags().StringVar(&loginProvider, "provider", "", "Social provider, e.g. google")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "Authorization code returned by the provider")
}
