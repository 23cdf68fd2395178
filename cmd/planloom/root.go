package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/planloom/planloom"
	"github.com/planloom/planloom/config"
	"github.com/planloom/planloom/store"
	"github.com/planloom/planloom/tools"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planloom",
		Short:         "AI task planner: turn a goal into a day-by-day plan",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// app bundles everything a command needs after config is loaded.
type app struct {
	cfg     config.Config
	planner *planloom.Planner
	store   store.Store
	logger  *slog.Logger
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	agent := planloom.NewAgent(planloom.PlannerPrompt, []planloom.Tool{
		tools.NewWebSearch(cfg.Tools.SerperAPIKey),
		tools.NewWeather(cfg.Tools.OpenWeatherAPIKey),
	})
	agent.SetLogger(logger)
	if cfg.MaxIterations > 0 {
		agent.SetMaxIterations(cfg.MaxIterations)
	}

	llm := planloom.NewLLMClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	planner := planloom.NewPlanner(llm, cfg.LLM.Model, store.NewGoalMemory(st), agent)

	return &app{cfg: cfg, planner: planner, store: st, logger: logger}, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.OpenSQLite(cfg.Store.Path)
	case "postgres":
		return store.OpenPostgres(cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}
