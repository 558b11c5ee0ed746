package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
	"github.com/TimurManjosov/ruleconsole/internal/client"
	"github.com/TimurManjosov/ruleconsole/internal/logging"
)

var (
	// Global flags
	baseURL string
	profile string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "CLI tool for managing rules on a rule service",
	Long: `rulectl talks to a rule service: it creates, modifies, combines, deletes and
lists rules, and evaluates a rule against attribute values.

Examples:
  rulectl list
  rulectl create adults --rule "age >= 18"
  rulectl combine "adults, high_income" --name adults_high_income --operator AND
  rulectl evaluate adults --set age=42
  rulectl evaluate adults            # interactive form`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the rule service")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Profile from ~/.ruleconsole/config.yaml")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// session bundles what a command needs to talk to the rule service.
type session struct {
	client *client.Client
	log    zerolog.Logger
	format cli.OutputFormat
	prof   *cli.Profile
}

func newSession() (*session, error) {
	outFormat, err := cli.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	prof, _, err := cli.GetProfileConfig(profile, baseURL)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, logging.FormatConsole, os.Stderr)
	if err != nil {
		return nil, err
	}

	c := client.NewClient(prof.BaseURL, prof.Timeout)
	c.Logger = log
	return &session{client: c, log: log, format: outFormat, prof: prof}, nil
}

func (s *session) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.client.HTTPClient.Timeout)
}
