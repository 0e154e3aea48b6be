package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/loykin/contract-deployer/internal/console"
	"github.com/loykin/contract-deployer/internal/util"
	"github.com/loykin/contract-deployer/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Resolve and print the deployment plan without running anything",
	Long: `Load the config, resolve the environment for each selected network and
print the resulting plan with secrets masked. This checks:
- config syntax and required fields
- network selection
- env files and variable references
- deployment credentials`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		o := deployOptions{
			ConfigPath: v.GetString("config"),
			Networks:   v.GetStringSlice("network"),
			LogLevel:   v.GetString("log_level"),
			LogFormat:  v.GetString("log_format"),
		}
		output, _ := cmd.Flags().GetString("output")
		return runValidate(o, output, cmd.OutOrStdout())
	},
}

func init() {
	validateCmd.Flags().StringP("output", "o", "text", "output format: text, yaml, json")
}

func runValidate(o deployOptions, output string, w io.Writer) error {
	format := util.TrimAndLower(output)
	switch format {
	case "", "text", "yaml", "yml", "json":
	default:
		return &config.ConfigError{Problems: []string{fmt.Sprintf("invalid output format: %s (valid: text, yaml, json)", output)}}
	}

	plans, err := loadPlans(o)
	if err != nil {
		return err
	}
	views := make([]config.PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, p.View())
	}

	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	default:
		printer := console.New(w, colorEnabled(w))
		for _, view := range views {
			printer.Plan(view)
		}
		_, _ = fmt.Fprintf(w, "\n%d plan(s) valid\n", len(views))
		return nil
	}
}
