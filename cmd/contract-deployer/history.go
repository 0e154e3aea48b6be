package main

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	deployer "github.com/loykin/contract-deployer"
	"github.com/loykin/contract-deployer/internal/console"
	"github.com/loykin/contract-deployer/pkg/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded deployment runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		limit, _ := cmd.Flags().GetInt("limit")
		return runHistory(cmd.Context(), v.GetString("history_db"), v.GetStringSlice("network"), limit, cmd.OutOrStdout())
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show (0 = all)")
}

func runHistory(ctx context.Context, location string, networks []string, limit int, w io.Writer) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return &config.ConfigError{Problems: []string{"--history-db is required"}}
	}
	if len(networks) > 1 {
		return &config.ConfigError{Problems: []string{"history accepts a single --network"}}
	}

	h, err := deployer.OpenHistory(ctx, location)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	filter := deployer.HistoryFilter{Limit: limit}
	if len(networks) == 1 {
		filter.Network = strings.TrimSpace(networks[0])
	}
	records, err := h.List(ctx, filter)
	if err != nil {
		return err
	}
	console.New(w, colorEnabled(w)).History(records)
	return nil
}
