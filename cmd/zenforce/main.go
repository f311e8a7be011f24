// zenforce is a terminal client for the Zenalyst reconciliation backend:
// upload and reconcile a CSV, stream the agents' progress, visualize the
// cleaned dataset, and ask grounded questions about it.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	zenforce "github.com/zenalyst/zenforce-go"
)

var (
	flagConfig  string
	flagBaseURL string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "zenforce",
		Short:         "Client for the Zenalyst reconciliation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log stream diagnostics")

	root.AddCommand(healthCmd(), reconcileCmd(), visualizeCmd(), askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zenforce: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds the client and session controller from config, flags and
// environment.
func newClient() (*zenforce.Client, *zenforce.SessionController, error) {
	cfg, err := zenforce.LoadConfigFromFile(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if flagVerbose {
		devLogger, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		logger = devLogger
	}

	opts := []zenforce.Option{zenforce.WithLogger(logger)}
	if flagBaseURL != "" {
		opts = append(opts, zenforce.WithBaseURL(flagBaseURL))
	}

	client := zenforce.NewClientFromConfig(cfg, opts...)
	return client, zenforce.NewSessionController(client, logger), nil
}

// requireSession refreshes and enforces the gate for dataset-dependent
// commands: offline and no-session states fail with a directive message
// instead of hitting the backend.
func requireSession(ctx context.Context, session *zenforce.SessionController, client *zenforce.Client) error {
	state := session.Refresh(ctx)
	if !state.Online {
		return fmt.Errorf("backend at %s is offline", client.BaseURL())
	}
	if !state.HasSession {
		return fmt.Errorf("no dataset on the backend - run 'zenforce reconcile <file.csv>' first")
	}
	return nil
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe backend reachability and dataset presence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, session, err := newClient()
			if err != nil {
				return err
			}

			state := session.Refresh(cmd.Context())
			if !state.Online {
				fmt.Printf("● offline — %s is not reachable\n", client.BaseURL())
				return nil
			}

			status, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("● online — %s (v%s)\n", status.Status, status.Version)
			if status.HasSession {
				fmt.Printf("  dataset: %s (%d clean rows)\n", status.Filename, status.CleanRows)
			} else {
				fmt.Println("  dataset: none")
			}
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <file.csv>",
		Short: "Upload a CSV and stream the reconciliation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, session, err := newClient()
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			stream, err := client.Reconcile(cmd.Context(), filepath.Base(args[0]), file)
			if err != nil {
				return err
			}
			defer stream.Close()

			var summary *zenforce.ReconciliationSummary
			for stream.Next() {
				switch ev := stream.Current(); ev.Type {
				case zenforce.EventThought:
					fmt.Println(ev.Thought)
				case zenforce.EventSummary:
					summary = ev.Summary
				case zenforce.EventError:
					return fmt.Errorf("backend reported: %s", ev.Message)
				}
			}
			if err := stream.Err(); err != nil {
				return err
			}
			if summary == nil {
				return fmt.Errorf("stream ended without a summary")
			}

			session.AdoptSession(summary)

			fmt.Printf("\n✓ %s reconciled: %d rows → %d clean (%d duplicates removed), integrity %s\n",
				summary.Filename, summary.OriginalRows, summary.CleanRows,
				summary.DuplicatesRemoved, summary.Audit.IntegrityStatus)
			for _, w := range zenforce.AuditWarnings(summary) {
				fmt.Printf("  ! [%s] %s\n", w.Severity, w.Message)
			}
			return nil
		},
	}
}

func visualizeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Chart the current dataset and download the plot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, session, err := newClient()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), session, client); err != nil {
				return err
			}

			stream, err := client.Visualize(cmd.Context())
			if err != nil {
				return err
			}
			defer stream.Close()

			var viz *zenforce.VizResult
			for stream.Next() {
				switch ev := stream.Current(); ev.Type {
				case zenforce.EventThought:
					fmt.Println(ev.Thought)
				case zenforce.EventVizResult:
					viz = ev.Viz
				case zenforce.EventError:
					return fmt.Errorf("backend reported: %s", ev.Message)
				}
			}
			if err := stream.Err(); err != nil {
				return err
			}
			if viz == nil {
				return fmt.Errorf("stream ended without a result")
			}
			if !viz.Success {
				return fmt.Errorf("visualization failed: %s", viz.Error)
			}

			plot, err := client.FetchPlot(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, plot, 0o644); err != nil {
				return err
			}
			fmt.Printf("\n✓ plot saved to %s (%d bytes)\n", output, len(plot))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "analysis_plot.png", "where to save the rendered plot")
	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a grounded question about the current dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, session, err := newClient()
			if err != nil {
				return err
			}
			if err := requireSession(cmd.Context(), session, client); err != nil {
				return err
			}

			answer, err := client.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Println(answer.Answer)
			if answer.Computed {
				fmt.Printf("(computed on %s: %s)\n", answer.Session.Filename, answer.ComputedRaw)
			}
			return nil
		},
	}
}
