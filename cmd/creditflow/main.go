package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanshika/creditscore/internal/config"
	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/flow"
	"github.com/vanshika/creditscore/internal/graph"
	"github.com/vanshika/creditscore/internal/logging"
	"github.com/vanshika/creditscore/internal/scoreclient"
	"github.com/vanshika/creditscore/internal/snapshot"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "creditflow",
		Short:         "Check your credit score, pick a plan and download your report",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("endpoint", "", "score backend endpoint (overrides FLOW_ENDPOINT)")
	rootCmd.PersistentFlags().String("store", "", "snapshot store driver: memory, file, sqlite or graph (overrides FLOW_STORE_DRIVER)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(resetCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	store  *snapshot.Adapter
	close  func()
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		cfg.Flow.Endpoint = endpoint
	}
	if driver, _ := cmd.Flags().GetString("store"); driver != "" {
		cfg.Flow.StoreDriver = driver
	}

	logger := logging.NewWithWriter(cfg.Logging, os.Stderr).With("component", "creditflow")
	ctx := cmd.Context()

	var graphClient graph.Client
	if cfg.Flow.StoreDriver == "graph" {
		graphClient, err = graph.NewNeo4jClient(ctx, graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return nil, fmt.Errorf("connect graph store: %w", err)
		}
	}

	store, closeStore, err := snapshot.Open(ctx, cfg.Flow, graphClient)
	if err != nil {
		if graphClient != nil {
			_ = graphClient.Close(context.Background())
		}
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		store:  store,
		close: func() {
			if err := closeStore(); err != nil {
				logger.Warn("closing snapshot store failed", "error", err)
			}
			if graphClient != nil {
				if err := graphClient.Close(context.Background()); err != nil {
					logger.Warn("closing graph client failed", "error", err)
				}
			}
		},
	}, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive credit score wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			client, err := scoreclient.New(scoreclient.Options{
				Endpoint: e.cfg.Flow.Endpoint,
				Timeout:  e.cfg.Flow.RequestTimeout,
				Logger:   e.logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			machine, err := flow.New(cmd.Context(), flow.Config{
				Remote:   client,
				Store:    e.store,
				Notifier: printNotifier(out),
				Logger:   e.logger,
			})
			if err != nil {
				return err
			}
			defer machine.Close()

			return newConsole(machine, cmd.InOrStdin(), out).run(cmd.Context())
		},
	}
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved progress on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if snap == nil {
					snap = &domain.PersistedSnapshot{}
				}
				return enc.Encode(snap)
			}
			printSnapshot(out, e.store.Key(), snap)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the available report plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			printPlans(cmd.OutOrStdout())
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved score, form and subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved progress cleared.")
			return nil
		},
	}
}
