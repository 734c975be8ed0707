package cmd

import (
	"fmt"
	"strings"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	commitNamespace   string
	commitName        string
	commitSetProps    []string
	commitRemoveProps []string
)

func init() {
	commitCmd.Flags().StringVar(&commitNamespace, "namespace", "", "dot-separated namespace (e.g. db.schema)")
	commitCmd.Flags().StringVar(&commitName, "name", "", "table name")
	commitCmd.Flags().StringArrayVar(&commitSetProps, "set", nil, "key=value property to set (repeatable)")
	commitCmd.Flags().StringArrayVar(&commitRemoveProps, "remove", nil, "property key to remove (repeatable)")
	commitCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(commitCmd)
}

// commitCmd exposes the operator-facing slice of CommitTable: property
// updates. Snapshot-adding commits require an upstream writer to have
// already produced manifest/data blobs, which is outside what a metadata
// CLI can fabricate on an operator's behalf.
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit property updates to an existing table, retrying on conflict",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}

		id := catalog.TableIdentifier{Namespace: splitNamespace(commitNamespace), Name: commitName}
		current, err := cat.LoadTable(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("loading table %s: %w", id, err)
		}

		setProps, err := parseKeyValues(commitSetProps)
		if err != nil {
			return err
		}

		var updates []catalog.Update
		if len(setProps) > 0 {
			updates = append(updates, catalog.Update{Kind: catalog.UpdateSetProperties, SetProperties: setProps})
		}
		if len(commitRemoveProps) > 0 {
			updates = append(updates, catalog.Update{Kind: catalog.UpdateRemoveProperties, RemoveProperties: commitRemoveProps})
		}
		if len(updates) == 0 {
			return fmt.Errorf("commit: at least one --set or --remove is required")
		}

		req := catalog.CommitRequest{
			Identifier:   id,
			Requirements: []catalog.Requirement{{Kind: catalog.AssertTableUUID, TableUUID: current.TableUUID}},
			Updates:      updates,
		}
		committed, err := cat.CommitTable(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("committing %s: %w", id, err)
		}

		fmt.Printf("committed %s (%d properties)\n", id, len(committed.Properties))
		return nil
	},
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set value %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}
