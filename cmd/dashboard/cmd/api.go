package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/dashboard-session/api"
	"github.com/jrsteele09/dashboard-session/transport"
	"github.com/spf13/cobra"
)

func authenticatedClient(cs *clientSession) *http.Client {
	return transport.New(cs.manager, nil, transport.WithLogger(newLogger())).Client()
}

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET an API path as the logged in user and print the response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, apiURL+"/"+strings.TrimLeft(args[0], "/"), nil)
		if err != nil {
			return err
		}
		resp, err := authenticatedClient(cs).Do(req)
		if err != nil {
			return errors.New(api.UserMessage(err))
		}
		defer resp.Body.Close()

		if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%s", resp.Status)
		}
		return nil
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		goals, err := api.New(apiURL, authenticatedClient(cs)).Goals().List(cmd.Context())
		if err != nil {
			return errors.New(api.UserMessage(err))
		}

		if goalsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(goals)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tPROGRESS\tDEADLINE")
		for _, g := range goals {
			deadline := "-"
			if g.Deadline != nil {
				deadline = g.Deadline.Format(api.DateLayout)
			}
			fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n", g.ID, g.Title, g.Progress, deadline)
		}
		return w.Flush()
	},
}

var (
	goalsJSON       bool
	goalDeadline    string
	goalProgress    int
	goalDescription string
)

var goalsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal := api.Goal{
			Title:       strings.Join(args, " "),
			Description: goalDescription,
			Progress:    goalProgress,
		}
		if goalDeadline != "" {
			deadline, err := time.Parse(api.DateLayout, goalDeadline)
			if err != nil {
				return fmt.Errorf("--deadline must be formatted as %s", api.DateLayout)
			}
			goal.Deadline = &deadline
		}

		cs, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer cs.close()

		created, err := api.New(apiURL, authenticatedClient(cs)).Goals().Create(cmd.Context(), goal)
		if err != nil {
			return errors.New(api.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created goal %s\n", created.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd, goalsCmd)
	goalsCmd.AddCommand(goalsListCmd, goalsAddCmd)
	goalsListCmd.Flags().BoolVar(&goalsJSON, "json", false, "Print JSON instead of a table")
	goalsAddCmd.Flags().StringVar(&goalDeadline, "deadline", "", "Deadline as YYYY-MM-DD")
	goalsAddCmd.Flags().IntVar(&goalProgress, "progress", 0, "Initial progress, 0 to 100")
	goalsAddCmd.Flags().StringVar(&goalDescription, "description", "", "Longer description")
}
