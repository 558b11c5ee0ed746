package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/ruleconsole/internal/cli"
)

var (
	setProfileBaseURL string
	setProfileTimeout time.Duration
	setProfileDefault bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage rulectl profiles stored in ~/.ruleconsole/config.yaml.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.ruleconsole/config.yaml

Example:
  rulectl config init`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration",
	Long: `Display the configured profiles and the settings that would be used now.

Example:
  rulectl config show --profile staging`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(out, "Profiles:")
		names := make([]string, 0, len(cfg.Profiles))
		for name := range cfg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := cfg.Profiles[name]
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    base_url: %s\n", p.BaseURL)
			if p.Timeout > 0 {
				fmt.Fprintf(out, "    timeout: %s\n", p.Timeout)
			}
		}

		effective, used, err := cli.GetProfileConfig(profile, baseURL)
		if err != nil {
			return err
		}
		if used == "" {
			used = "(none)"
		}
		fmt.Fprintf(out, "\nEffective: %s via profile %s\n", effective.BaseURL, used)
		return nil
	},
}

var configSetProfileCmd = &cobra.Command{
	Use:   "set-profile <name>",
	Short: "Create or update a profile",
	Long: `Create or update a named profile.

Examples:
  rulectl config set-profile local --base-url http://localhost:8086
  rulectl config set-profile staging --base-url https://rules.staging --timeout 10s --default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.SetProfile(args[0], setProfileBaseURL, setProfileTimeout, setProfileDefault); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully saved profile '%s'\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetProfileCmd)

	// --base-url is global; the profile's own URL is taken from it.
	configSetProfileCmd.Flags().DurationVar(&setProfileTimeout, "timeout", 0, "Request timeout for this profile")
	configSetProfileCmd.Flags().BoolVar(&setProfileDefault, "default", false, "Make this the default profile")
	configSetProfileCmd.PreRun = func(cmd *cobra.Command, args []string) {
		setProfileBaseURL = baseURL
	}
}
