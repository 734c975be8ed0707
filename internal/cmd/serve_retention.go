package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/catalog/retention"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveRetentionTables []string

func init() {
	serveRetentionCmd.Flags().StringArrayVar(&serveRetentionTables, "table", nil, "namespace.name of a table to sweep (repeatable); required")
	serveRetentionCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(serveRetentionCmd)
}

var serveRetentionCmd = &cobra.Command{
	Use:   "serve-retention",
	Short: "Run the cron-scheduled retention sweep from config until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, cfg, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		if !cfg.Retention.Enabled {
			return fmt.Errorf("serve-retention: retention.enabled is false in config")
		}

		ids, err := parseTableFlags(serveRetentionTables)
		if err != nil {
			return err
		}

		policy := snapshot.Policy{MinSnapshotsToKeep: &cfg.Retention.MinSnapshotsToKeep}
		if cfg.Retention.MaxSnapshotAgeMs > 0 {
			policy.MaxSnapshotAgeMs = &cfg.Retention.MaxSnapshotAgeMs
		}
		if cfg.Retention.MaxRefAgeMs > 0 {
			policy.MaxRefAgeMs = &cfg.Retention.MaxRefAgeMs
		}

		sweeper := retention.NewSweeper(cat, policy, cfg.Retention.Purge, func(_ context.Context) ([]catalog.TableIdentifier, error) {
			return ids, nil
		})
		if err := sweeper.Start(cmd.Context(), cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("starting retention sweep: %w", err)
		}
		log.Info().Str("schedule", cfg.Retention.Schedule).Int("tables", len(ids)).Msg("retention sweep scheduled")

		if cfg.Metrics.Enabled {
			go serveMetrics(cfg.Metrics.Port)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		log.Info().Msg("retention sweep stopping")
		sweeper.Stop()
		return nil
	},
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("metrics server started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func parseTableFlags(tables []string) ([]catalog.TableIdentifier, error) {
	var out []catalog.TableIdentifier
	for _, t := range tables {
		parts := splitNamespace(t)
		if len(parts) == 0 {
			return nil, fmt.Errorf("invalid --table %q", t)
		}
		name := parts[len(parts)-1]
		ns := parts[:len(parts)-1]
		out = append(out, catalog.TableIdentifier{Namespace: ns, Name: name})
	}
	return out, nil
}
