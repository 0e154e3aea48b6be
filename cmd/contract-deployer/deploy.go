package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	deployer "github.com/loykin/contract-deployer"
	"github.com/loykin/contract-deployer/internal/common"
	"github.com/loykin/contract-deployer/internal/console"
	"github.com/loykin/contract-deployer/internal/runner"
	"github.com/loykin/contract-deployer/pkg/config"
	"github.com/loykin/contract-deployer/pkg/env"
	"github.com/loykin/contract-deployer/pkg/orchestrator"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func streamsFor(cmd *cobra.Command) streams {
	return streams{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
}

// colorEnabled reports whether w is a terminal and NO_COLOR is unset.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type deployOptions struct {
	ConfigPath  string
	Networks    []string
	Repo        string
	Args        []string
	Yes         bool
	KeepWorkdir bool
	ForgeBin    string
	HistoryDB   string
	LogLevel    string
	LogFormat   string
}

func deployOptionsFromFlags(cmd *cobra.Command) (deployOptions, error) {
	v := viper.GetViper()
	// --args values may contain commas, so they bypass viper's slice parsing
	args, err := cmd.Flags().GetStringArray("args")
	if err != nil {
		return deployOptions{}, err
	}
	return deployOptions{
		ConfigPath:  v.GetString("config"),
		Networks:    v.GetStringSlice("network"),
		Repo:        v.GetString("repo"),
		Args:        args,
		Yes:         v.GetBool("yes"),
		KeepWorkdir: v.GetBool("keep_workdir"),
		ForgeBin:    v.GetString("forge_bin"),
		HistoryDB:   v.GetString("history_db"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
	}, nil
}

// loadPlans reads the config, applies its logging settings and resolves a
// plan per requested network.
func loadPlans(o deployOptions) ([]*config.Plan, error) {
	if strings.TrimSpace(o.ConfigPath) == "" {
		return nil, &config.ConfigError{Problems: []string{"--config is required"}}
	}
	doc, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(doc.Logging, o.LogLevel, o.LogFormat); err != nil {
		return nil, &config.ConfigError{Path: doc.Path, Err: err}
	}
	return config.BuildPlans(doc, o.Networks, config.PlanOptions{
		Repo:       o.Repo,
		ExtraArgs:  o.Args,
		ProcessEnv: env.ProcessEnv(),
	})
}

func runDeploy(ctx context.Context, o deployOptions, s streams) error {
	plans, err := loadPlans(o)
	if err != nil {
		return err
	}
	logger := common.GetLogger().WithComponent("cli")

	printer := console.New(s.out, colorEnabled(s.out))
	for _, p := range plans {
		common.GetGlobalMasker().AddSecrets(p.Secrets()...)
		printer.Plan(p.View())
	}

	var history *deployer.HistoryStore
	if loc := strings.TrimSpace(o.HistoryDB); loc != "" {
		history, err = deployer.OpenHistory(ctx, loc)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			history = nil
		} else {
			defer func() { _ = history.Close() }()
		}
	}

	opts := orchestrator.Options{
		ForgeBin:    o.ForgeBin,
		KeepWorkdir: o.KeepWorkdir,
		Output:      runner.WriterSink{Out: s.out, Err: s.err, Mask: common.MaskSensitiveData},
		OnEvent:     printer.Event,
	}
	if !o.Yes {
		opts.Confirm = console.Confirm(s.in, s.out)
	}

	runs, err := deployer.NewOrchestrator(history, opts).RunAll(ctx, plans)
	printer.Summary(runs)
	return err
}
