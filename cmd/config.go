package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/disclosure-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		redact, _ := cmd.Flags().GetBool("redact")
		c := *cfg
		if redact {
			c = redacted(c)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return eris.Wrap(err, "config show: encode")
		}
		return eris.Wrap(enc.Close(), "config show: flush")
	},
}

// redacted masks credentials so the output can be shared.
func redacted(c config.Config) config.Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.Oracle.Inference.Token = mask(c.Oracle.Inference.Token)
	c.Oracle.Anthropic.Key = mask(c.Oracle.Anthropic.Key)
	c.Oracle.OpenAI.Key = mask(c.Oracle.OpenAI.Key)
	if c.Store.Driver == "postgres" {
		c.Store.DatabaseURL = mask(c.Store.DatabaseURL)
	}
	return c
}

func init() {
	configShowCmd.Flags().Bool("redact", true, "mask API keys and database URLs")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
