package cmd

import (
	"fmt"
	"os"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	loadTableNamespace string
	loadTableName      string
)

func init() {
	loadTableCmd.Flags().StringVar(&loadTableNamespace, "namespace", "", "dot-separated namespace (e.g. db.schema)")
	loadTableCmd.Flags().StringVar(&loadTableName, "name", "", "table name")
	loadTableCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(loadTableCmd)
}

var loadTableCmd = &cobra.Command{
	Use:   "load-table",
	Short: "Print a table's current root metadata as canonical JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}

		id := catalog.TableIdentifier{Namespace: splitNamespace(loadTableNamespace), Name: loadTableName}
		root, err := cat.LoadTable(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("loading table %s: %w", id, err)
		}

		raw, err := metadata.MarshalRoot(root)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", id, err)
		}
		_, err = os.Stdout.Write(append(raw, '\n'))
		return err
	},
}
