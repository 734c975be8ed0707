package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/types"
	"github.com/spf13/cobra"
)

var (
	createTableNamespace  string
	createTableName       string
	createTableSchemaFile string
)

func init() {
	createTableCmd.Flags().StringVar(&createTableNamespace, "namespace", "", "dot-separated namespace (e.g. db.schema)")
	createTableCmd.Flags().StringVar(&createTableName, "name", "", "table name")
	createTableCmd.Flags().StringVar(&createTableSchemaFile, "schema", "", `path to a JSON schema file: [{"id":1,"name":"id","type":"long","required":true}]`)
	createTableCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createTableCmd)
}

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "Create a new table's initial metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}

		var schema *metadata.Schema
		if createTableSchemaFile != "" {
			schema, err = readSchemaFile(createTableSchemaFile)
			if err != nil {
				return err
			}
		}

		id := catalog.TableIdentifier{Namespace: splitNamespace(createTableNamespace), Name: createTableName}
		root, err := cat.CreateTable(cmd.Context(), id, catalog.CreateTableInput{Schema: schema})
		if err != nil {
			return fmt.Errorf("creating table %s: %w", id, err)
		}

		fmt.Printf("created table %s (table-uuid %s, format-version %d)\n", id, root.TableUUID, root.FormatVersion)
		return nil
	},
}

type schemaFieldInput struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

func readSchemaFile(path string) (*metadata.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %q: %w", path, err)
	}
	var inputs []schemaFieldInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parsing schema file %q: %w", path, err)
	}
	fields := make([]metadata.Field, len(inputs))
	for i, in := range inputs {
		t, err := types.ParseType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", in.Name, err)
		}
		fields[i] = metadata.Field{ID: in.ID, Name: in.Name, Required: in.Required, Type: metadata.PrimitiveType{Type: t}}
	}
	return &metadata.Schema{Fields: fields}, nil
}

func splitNamespace(ns string) []string {
	if ns == "" {
		return nil
	}
	return strings.Split(ns, ".")
}
