package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/runner-warden/internal/webhook"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign [payload-file]",
	Short: "Prints the webhook signature header for a payload",
	Long: `Prints the X-Hub-Signature-256 value GitHub would send for a payload, so a
delivery can be replayed by hand. Reads stdin when no file or "-" is given.

Example:
  warden-cli sign --secret "$GITHUB_WEBHOOK_SECRET" queued.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if signSecret == "" {
			return errors.New("--secret is required")
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open payload: %w", err)
			}
			defer f.Close()
			in = f
		}

		body, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), webhook.Sign([]byte(signSecret), body))
		return err
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	signCmd.Flags().StringVar(&signSecret, "secret", "", "webhook secret shared with GitHub")
	rootCmd.AddCommand(signCmd)
}
