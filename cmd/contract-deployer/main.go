package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "contract-deployer",
	Short: "Deploy Foundry scripts to the networks defined in a config file",
	Long: `Resolve the deployment configuration for one or more networks, acquire the
project repository, run the setup command, deploy with forge script and
optionally verify the deployed contracts.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := deployOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runDeploy(cmd.Context(), opts, streamsFor(cmd))
	},
}

func init() {
	v := viper.GetViper()
	v.SetDefault("forge_bin", "forge")
	v.SetDefault("yes", false)
	v.SetDefault("keep_workdir", false)

	// Environment variables support: DEPLOYER_CONFIG, DEPLOYER_HISTORY_DB, ...
	v.SetEnvPrefix("DEPLOYER")
	v.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to the deployment config (TOML or YAML)")
	pf.StringSliceP("network", "n", nil, "network to deploy to; repeat for several (default: project.network)")
	pf.String("history-db", "", "run history location: a sqlite file or a postgres:// URL")
	pf.String("log-level", "", "log level override: error, warn, info, debug")
	pf.String("log-format", "", "log format override: text, json, color")

	f := rootCmd.Flags()
	f.String("repo", "", "repository URL overriding project.repo")
	f.StringArrayP("args", "a", nil, "extra argument appended to forge script; repeatable")
	f.BoolP("yes", "y", v.GetBool("yes"), "deploy without asking for confirmation")
	f.Bool("keep-workdir", v.GetBool("keep_workdir"), "keep the temporary checkout after the run")
	f.String("forge-bin", v.GetString("forge_bin"), "forge executable")

	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("network", pf.Lookup("network"))
	_ = v.BindPFlag("history_db", pf.Lookup("history-db"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = v.BindPFlag("log_format", pf.Lookup("log-format"))
	_ = v.BindPFlag("repo", f.Lookup("repo"))
	_ = v.BindPFlag("yes", f.Lookup("yes"))
	_ = v.BindPFlag("keep_workdir", f.Lookup("keep-workdir"))
	_ = v.BindPFlag("forge_bin", f.Lookup("forge-bin"))

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
