package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/catalog/retention"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	expireNamespace          string
	expireName               string
	expireMaxSnapshotAgeMs   int64
	expireMaxRefAgeMs        int64
	expireMinSnapshotsToKeep int
	expirePurge              bool
)

func init() {
	expireSnapshotsCmd.Flags().StringVar(&expireNamespace, "namespace", "", "dot-separated namespace (e.g. db.schema)")
	expireSnapshotsCmd.Flags().StringVar(&expireName, "name", "", "table name")
	expireSnapshotsCmd.Flags().Int64Var(&expireMaxSnapshotAgeMs, "max-snapshot-age-ms", 0, "expire snapshots older than this (0 disables the age dimension)")
	expireSnapshotsCmd.Flags().Int64Var(&expireMaxRefAgeMs, "max-ref-age-ms", 0, "let refs older than this lapse, no longer protecting their ancestry (0 disables)")
	expireSnapshotsCmd.Flags().IntVar(&expireMinSnapshotsToKeep, "min-snapshots-to-keep", 1, "always keep at least this many of the newest snapshots")
	expireSnapshotsCmd.Flags().BoolVar(&expirePurge, "purge", false, "also delete the manifest/data blobs expired snapshots uniquely owned")
	expireSnapshotsCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(expireSnapshotsCmd)
}

var expireSnapshotsCmd = &cobra.Command{
	Use:   "expire-snapshots",
	Short: "Expire snapshots a retention policy no longer protects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}

		id := catalog.TableIdentifier{Namespace: splitNamespace(expireNamespace), Name: expireName}
		policy := snapshot.Policy{MinSnapshotsToKeep: &expireMinSnapshotsToKeep}
		if expireMaxSnapshotAgeMs > 0 {
			policy.MaxSnapshotAgeMs = &expireMaxSnapshotAgeMs
		}
		if expireMaxRefAgeMs > 0 {
			policy.MaxRefAgeMs = &expireMaxRefAgeMs
		}

		outcome, err := retention.ExpireSnapshots(cmd.Context(), cat, id, policy, time.Now().UnixMilli(), expirePurge)
		if err != nil {
			return fmt.Errorf("expiring snapshots for %s: %w", id, err)
		}

		if len(outcome.ExpiredIDs) == 0 {
			fmt.Printf("%s: no snapshots expired\n", id)
			return nil
		}
		fmt.Printf("%s: expired %d snapshots, freed %s across %d data files and %d manifests\n",
			id, len(outcome.ExpiredIDs), humanize.Bytes(uint64(outcome.FreedBytes)),
			outcome.DeletedDataFilesCount, outcome.DeletedManifestFilesCount)
		return nil
	},
}
