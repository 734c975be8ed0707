package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	icepath "github.com/marmotdata/icemeta/internal/path"

	"github.com/marmotdata/icemeta/internal/metadata"
	"github.com/marmotdata/icemeta/internal/storage"
)

// CreateTableInput describes a new table (spec §4.L createTable).
type CreateTableInput struct {
	Schema        *metadata.Schema
	PartitionSpec *metadata.PartitionSpec
	SortOrder     *metadata.SortOrder
	Properties    map[string]string
	FormatVersion int // defaults to 2
}

func metadataDir(id TableIdentifier) string {
	return tablePrefix(id.Namespace, id.Name) + "/metadata"
}

func versionHintKey(id TableIdentifier) string {
	return metadataDir(id) + "/version-hint.text"
}

func versionedMetadataKey(id TableIdentifier, version int) string {
	return fmt.Sprintf("%s/v%d.metadata.json", metadataDir(id), version)
}

// CreateTable allocates a table-uuid, writes v1.metadata.json and
// version-hint.text, and returns the root metadata.
func (c *Catalog) CreateTable(ctx context.Context, id TableIdentifier, in CreateTableInput) (metadata.RootMetadata, error) {
	exists, err := c.blob.Exists(ctx, versionHintKey(id))
	if err != nil {
		return metadata.RootMetadata{}, fmt.Errorf("checking for existing table %s: %w", id, err)
	}
	if exists {
		return metadata.RootMetadata{}, ErrTableAlreadyExists
	}

	schema := metadata.Schema{SchemaID: 0}
	if in.Schema != nil {
		schema = *in.Schema
		schema.SchemaID = 0
	}
	spec := metadata.PartitionSpec{SpecID: 0}
	if in.PartitionSpec != nil {
		spec = *in.PartitionSpec
		spec.SpecID = 0
	}
	order := metadata.SortOrder{OrderID: 0}
	if in.SortOrder != nil {
		order = *in.SortOrder
		order.OrderID = 0
	}
	props := in.Properties
	if props == nil {
		props = map[string]string{}
	}
	formatVersion := in.FormatVersion
	if formatVersion == 0 {
		formatVersion = 2
	}

	root := metadata.RootMetadata{
		FormatVersion:      formatVersion,
		TableUUID:          metadata.NewTableUUID(),
		Location:           tablePrefix(id.Namespace, id.Name),
		LastSequenceNumber: 0,
		LastUpdatedMs:      c.clock.NowMs(),
		LastColumnID:       maxFieldID(schema),
		Schemas:            []metadata.Schema{schema},
		CurrentSchemaID:    0,
		PartitionSpecs:     []metadata.PartitionSpec{spec},
		DefaultSpecID:      0,
		LastPartitionID:    metadata.InitialLastPartitionID,
		SortOrders:         []metadata.SortOrder{order},
		DefaultSortOrderID: 0,
		Properties:         props,
		Refs:               map[string]metadata.SnapshotRef{},
	}
	if formatVersion == 3 {
		zero := int64(0)
		root.NextRowID = &zero
	}

	if err := metadata.Validate(root); err != nil {
		return metadata.RootMetadata{}, err
	}

	raw, err := metadata.MarshalRoot(root)
	if err != nil {
		return metadata.RootMetadata{}, err
	}
	if err := c.putMetadataBlob(ctx, versionedMetadataKey(id, 1), raw); err != nil {
		return metadata.RootMetadata{}, fmt.Errorf("writing v1.metadata.json for %s: %w", id, err)
	}
	if err := c.blob.Put(ctx, versionHintKey(id), []byte("1")); err != nil {
		return metadata.RootMetadata{}, fmt.Errorf("writing version-hint for %s: %w", id, err)
	}
	return root, nil
}

// putMetadataBlob writes a versioned metadata blob, preferring a
// conditional write when the backend supports one so a concurrent creator
// of the same version never silently clobbers another table's write.
func (c *Catalog) putMetadataBlob(ctx context.Context, key string, data []byte) error {
	if cb, ok := c.blob.(storage.ConditionalBlob); ok {
		return cb.PutIfAbsent(ctx, key, data)
	}
	return c.blob.Put(ctx, key, data)
}

func maxFieldID(s metadata.Schema) int {
	max := 0
	for _, id := range s.AllFieldIDs() {
		if id > max {
			max = id
		}
	}
	return max
}

// LoadTable reads version-hint.text, resolves it to a metadata blob (a
// numeric version or, if the hint is a path, a validated full path), and
// parses it.
func (c *Catalog) LoadTable(ctx context.Context, id TableIdentifier) (metadata.RootMetadata, error) {
	hintBytes, err := c.blob.Get(ctx, versionHintKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return metadata.RootMetadata{}, ErrTableNotFound
		}
		return metadata.RootMetadata{}, fmt.Errorf("reading version-hint for %s: %w", id, err)
	}

	key, err := resolveVersionHint(id, string(hintBytes))
	if err != nil {
		return metadata.RootMetadata{}, err
	}

	raw, err := c.blob.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return metadata.RootMetadata{}, ErrTableNotFound
		}
		return metadata.RootMetadata{}, fmt.Errorf("reading metadata blob %q for %s: %w", key, id, err)
	}

	root, err := metadata.UnmarshalRoot(raw)
	if err != nil {
		return metadata.RootMetadata{}, err
	}
	if err := metadata.Validate(root); err != nil {
		return metadata.RootMetadata{}, err
	}
	return root, nil
}

func resolveVersionHint(id TableIdentifier, hint string) (string, error) {
	hint = strings.TrimSpace(hint)
	if n, err := strconv.Atoi(hint); err == nil {
		return versionedMetadataKey(id, n), nil
	}
	if err := icepath.Validate(hint); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVersionHint, err)
	}
	return hint, nil
}

// currentVersion parses the numeric version out of a version-hint,
// returning an error if the hint is a full-path form (the commit loop only
// deals in tables it itself versions numerically).
func currentVersion(hint string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(hint))
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric version-hint %q", ErrInvalidVersionHint, hint)
	}
	return n, nil
}

// ListTables returns the table names directly registered under ns.
func (c *Catalog) ListTables(ctx context.Context, ns []string) ([]string, error) {
	return c.listTableNamesOnStorage(ctx, ns)
}

func (c *Catalog) listTableNamesOnStorage(ctx context.Context, ns []string) ([]string, error) {
	prefix := strings.Join(ns, "/")
	if prefix != "" {
		prefix += "/"
	}
	keys, err := c.blob.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var names []string
	const suffix = "/metadata/version-hint.text"
	for _, k := range keys {
		if !strings.HasSuffix(k, suffix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		rest = strings.TrimSuffix(rest, suffix)
		if strings.Contains(rest, "/") {
			continue // belongs to a nested namespace, not ns itself
		}
		if rest == "" || seen[rest] {
			continue
		}
		seen[rest] = true
		names = append(names, rest)
	}
	return names, nil
}

// TableExists reports whether id has a version-hint blob.
func (c *Catalog) TableExists(ctx context.Context, id TableIdentifier) (bool, error) {
	return c.blob.Exists(ctx, versionHintKey(id))
}

// DropTable removes id's metadata. When purge is true, data files under the
// table's location are removed too; otherwise only the metadata tree is
// deleted and data/manifest blobs are left for out-of-band cleanup.
func (c *Catalog) DropTable(ctx context.Context, id TableIdentifier, purge bool) error {
	exists, err := c.TableExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTableNotFound
	}

	prefix := tablePrefix(id.Namespace, id.Name) + "/"
	if !purge {
		prefix = metadataDir(id) + "/"
	}
	keys, err := c.blob.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("listing blobs under %q: %w", prefix, err)
	}
	for _, k := range keys {
		if err := c.blob.Delete(ctx, k); err != nil {
			return fmt.Errorf("deleting %q: %w", k, err)
		}
	}
	return nil
}

// RenameTable re-registers the table under a new identifier. It copies the
// current root metadata (with its location updated) to the new identifier
// as v1.metadata.json and removes the old identifier's metadata tree; data
// and manifest blobs stay at their original paths, since their locations
// are recorded inside the metadata that just moved, not re-derived from the
// identifier.
func (c *Catalog) RenameTable(ctx context.Context, from, to TableIdentifier) error {
	root, err := c.LoadTable(ctx, from)
	if err != nil {
		return err
	}
	toExists, err := c.TableExists(ctx, to)
	if err != nil {
		return err
	}
	if toExists {
		return ErrTableAlreadyExists
	}

	root.Location = tablePrefix(to.Namespace, to.Name)
	raw, err := metadata.MarshalRoot(root)
	if err != nil {
		return err
	}
	if err := c.putMetadataBlob(ctx, versionedMetadataKey(to, 1), raw); err != nil {
		return fmt.Errorf("writing renamed metadata for %s: %w", to, err)
	}
	if err := c.blob.Put(ctx, versionHintKey(to), []byte("1")); err != nil {
		return fmt.Errorf("writing version-hint for %s: %w", to, err)
	}

	return c.DropTable(ctx, from, false)
}
