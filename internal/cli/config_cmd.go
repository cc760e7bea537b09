package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/prflow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect where prflow reads fix records from",
	Long: `Inspect the prflow configuration: which file is in use, which source the
dashboard and poller will fetch fix records from, and whether the settings
are usable. Without --config, prflow reads ./prflow.yaml, then
~/.prflow/config.yaml, then falls back to built-in defaults. The
PRFLOW_SOURCE_URL, PRFLOW_SOURCE_DSN and PRFLOW_PORT variables override the
file.`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the source, refresh and server settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		origin := configOrigin()

		errs := config.Validate(cfg)
		if len(errs) > 0 {
			cmd.Printf("%s: %d problem(s)\n", origin, len(errs))
			for _, e := range errs {
				cmd.Printf("  ✗ %s\n", e)
			}
			return fmt.Errorf("prflow config has %d problem(s)", len(errs))
		}

		p := cfg.Prflow
		cmd.Printf("%s: ok\n", origin)
		cmd.Printf("  source:  %s %s (limit %d, timeout %s)\n",
			p.Source.Kind, sourceTarget(p.Source), p.Source.Limit, p.Source.TimeoutDuration())
		cmd.Printf("  refresh: every %s\n", p.Refresh.IntervalDuration())
		cmd.Printf("  web ui:  http://localhost:%d\n", p.Server.Port)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after defaults and env overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config: %w", err)
		}

		cmd.Printf("# prflow config from %s\n", configOrigin())
		if env := envOverrides(); len(env) > 0 {
			cmd.Printf("# overridden by %s\n", strings.Join(env, ", "))
		}
		cmd.Print(string(data))
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the config file locations prflow searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		used := configFile()
		if configPath != "" {
			cmd.Printf("--config %s  (in use)\n", configPath)
		}
		for _, p := range config.SearchPaths() {
			state := "missing"
			if _, err := os.Stat(p); err == nil {
				state = "found"
			}
			if p == used {
				state += ", in use"
			}
			cmd.Printf("%s  (%s)\n", p, state)
		}
		if used == "" {
			cmd.Println("no file found, using built-in defaults")
		}
		return nil
	},
}

// configFile returns the file loadConfig reads, or "" when it falls back to
// built-in defaults.
func configFile() string {
	if configPath != "" {
		return configPath
	}
	for _, p := range config.SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func configOrigin() string {
	if f := configFile(); f != "" {
		return f
	}
	return "built-in defaults"
}

func envOverrides() []string {
	var set []string
	for _, name := range []string{config.EnvSourceURL, config.EnvSourceDSN, config.EnvPort} {
		if os.Getenv(name) != "" {
			set = append(set, name)
		}
	}
	return set
}

// sourceTarget names what a source fetches from. Postgres passwords are
// masked.
func sourceTarget(s config.Source) string {
	switch s.Kind {
	case config.KindHTTP:
		return s.URL
	case config.KindPostgres:
		u, err := url.Parse(s.DSN)
		if err != nil || u.User == nil {
			return s.DSN
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
		return u.String()
	}
	return s.Path
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathsCmd)
}
