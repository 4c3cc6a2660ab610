package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/runner-warden/internal/server/handler"
)

var (
	unitsURL   string
	unitsToken string
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Lists the execution units a running runner-warden holds slots for",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if unitsToken == "" {
			unitsToken = os.Getenv("SERVER_ADMIN_TOKEN")
		}
		if unitsToken == "" {
			return errors.New("an admin token is required (--token or SERVER_ADMIN_TOKEN)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		list, err := fetchUnits(ctx, unitsURL, unitsToken)
		if err != nil {
			return err
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(list)
		}

		color.New(color.Bold).Printf("%d/%d slots in use\n", list.Outstanding, list.Ceiling)
		if len(list.Units) == 0 {
			return nil
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "UNIT\tJOB\tREPOSITORY\tPROFILE\tRUNNING FOR\tDEADLINE")
		for _, u := range list.Units {
			deadline := u.Deadline.Format(time.RFC822)
			if now.After(u.Deadline) {
				deadline = errorColor.Sprint(deadline)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				u.ID,
				u.JobID,
				u.Repository,
				u.Profile.Name,
				now.Sub(u.StartedAt).Round(time.Second),
				deadline,
			)
		}
		return w.Flush()
	},
}

func fetchUnits(ctx context.Context, baseURL, token string) (*handler.UnitsList, error) {
	endpoint, err := url.JoinPath(baseURL, "api", "v1", "units")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach runner-warden: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.New("the admin endpoint is disabled on this server (server.admin_token unset)")
	default:
		return nil, fmt.Errorf("runner-warden returned %s", resp.Status)
	}

	var list handler.UnitsList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode units: %w", err)
	}
	return &list, nil
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	unitsCmd.Flags().StringVar(&unitsURL, "url", "http://localhost:8080", "base URL of the runner-warden server")
	unitsCmd.Flags().StringVar(&unitsToken, "token", "", "admin token (defaults to SERVER_ADMIN_TOKEN)")
	unitsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output units as JSON")
	rootCmd.AddCommand(unitsCmd)
}
